package gormstore

import (
	"context"

	"github.com/tus-lockers/locker-backend/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type lockers struct{ s *Store }

func (r lockers) Upsert(ctx context.Context, ls []store.Locker) error {
	if len(ls) == 0 {
		return nil
	}
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "locker_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"location", "status"}),
		}).CreateInBatches(ls, 200).Error
	})
}

func (r lockers) Get(ctx context.Context, lockerID string) (*store.Locker, error) {
	var l store.Locker
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.First(&l, "locker_id = ?", lockerID).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r lockers) GetForUpdate(ctx context.Context, lockerID string) (*store.Locker, error) {
	var l store.Locker
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "locker_id = ?", lockerID).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r lockers) List(ctx context.Context, floorPrefix string) ([]store.Locker, error) {
	var out []store.Locker
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("locker_id LIKE ?", prefixPattern(floorPrefix)).
			Order("locker_id ASC").
			Find(&out).Error
	})
	return out, err
}

func (r lockers) SetStatus(ctx context.Context, lockerID string, status store.LockerStatus) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&store.Locker{}).Where("locker_id = ?", lockerID).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r lockers) UpdateStatus(ctx context.Context, floorPrefix string, from, to store.LockerStatus) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&store.Locker{}).
			Where("locker_id LIKE ? AND status = ?", prefixPattern(floorPrefix), from).
			Update("status", to)
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

func (r lockers) DeleteAll(ctx context.Context) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(&store.Locker{}).Error
	})
}

type assignments struct{ s *Store }

func (r assignments) Create(ctx context.Context, a *store.AssignmentRecord) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
}

func (r assignments) GetByPair(ctx context.Context, pairID string, year int) (*store.AssignmentRecord, error) {
	var a store.AssignmentRecord
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("pair_id = ? AND year = ? AND deleted_at IS NULL", pairID, year).First(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r assignments) List(ctx context.Context, year int, floorPrefix, pairID string) ([]store.AssignmentRecord, error) {
	var out []store.AssignmentRecord
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		q := tx.Where("year = ? AND deleted_at IS NULL", year)
		if floorPrefix != "" {
			q = q.Where("locker_id LIKE ?", prefixPattern(floorPrefix))
		}
		if pairID != "" {
			q = q.Where("pair_id = ?", pairID)
		}
		return q.Order("locker_id ASC").Find(&out).Error
	})
	return out, err
}

func (r assignments) DeleteAll(ctx context.Context) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(&store.AssignmentRecord{}).Error
	})
}
