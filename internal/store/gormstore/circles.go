package gormstore

import (
	"context"
	"time"

	"github.com/tus-lockers/locker-backend/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type circles struct{ s *Store }

func (r circles) UpsertOrganization(ctx context.Context, o *store.Organization) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"ruby", "email", "club_type", "updated_at"}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "organization_id"}}},
		).Create(o).Error
	})
}

func (r circles) CreateRepresentatives(ctx context.Context, rep *store.Representatives) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(rep).Error
	})
}

func (r circles) CreateRegistration(ctx context.Context, reg *store.Registration) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Omit("Organization").Create(reg).Error
	})
}

func (r circles) GetRegistration(ctx context.Context, registrationID string) (*store.Registration, error) {
	var reg store.Registration
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Preload("Organization").First(&reg, "registration_id = ?", registrationID).Error
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r circles) ListRegistrations(ctx context.Context, year int, status store.RegistrationStatus) ([]store.Registration, error) {
	var out []store.Registration
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		q := tx.Preload("Organization").Where("year = ?", year)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Order("created_at ASC").Find(&out).Error
	})
	return out, err
}

func (r circles) ReviewRegistration(ctx context.Context, registrationID string, status store.RegistrationStatus, comment, reviewer string, at time.Time) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		var existing store.Registration
		if err := tx.Select("registration_id").First(&existing, "registration_id = ?", registrationID).Error; err != nil {
			return err
		}
		res := tx.Model(&store.Registration{}).
			Where("registration_id = ? AND status = ?", registrationID, store.RegistrationPending).
			Updates(map[string]any{
				"status":         status,
				"review_comment": comment,
				"reviewed_by":    reviewer,
				"reviewed_at":    at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrConflict
		}
		return nil
	})
}

func (r circles) DeleteAll(ctx context.Context) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		for _, m := range []any{&store.Registration{}, &store.Representatives{}, &store.Organization{}} {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
