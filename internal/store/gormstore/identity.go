package gormstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/tus-lockers/locker-backend/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type students struct{ s *Store }

func (r students) Upsert(ctx context.Context, st *store.Student) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(st).Error
	})
}

func (r students) Get(ctx context.Context, studentID string) (*store.Student, error) {
	var st store.Student
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.First(&st, "student_id = ?", studentID).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r students) SearchByName(ctx context.Context, familyPrefix, givenPrefix string) ([]store.Student, error) {
	var out []store.Student
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("family_name LIKE ? AND given_name LIKE ?", prefixPattern(familyPrefix), prefixPattern(givenPrefix)).
			Order("student_id ASC").
			Find(&out).Error
	})
	return out, err
}

func (r students) DeleteAll(ctx context.Context) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(&store.Student{}).Error
	})
}

type pairs struct{ s *Store }

func (r pairs) Create(ctx context.Context, p *store.StudentPair) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
}

func (r pairs) Get(ctx context.Context, pairID string) (*store.StudentPair, error) {
	return r.first(ctx, "pair_id = ?", pairID)
}

func (r pairs) GetByRepresentative(ctx context.Context, studentID string, year int) (*store.StudentPair, error) {
	return r.first(ctx, "student_id1 = ? AND year = ?", studentID, year)
}

func (r pairs) GetByMember(ctx context.Context, studentID string, year int) (*store.StudentPair, error) {
	return r.first(ctx, "(student_id1 = ? OR student_id2 = ?) AND year = ?", studentID, studentID, year)
}

// LockMembers takes one transaction-scoped advisory lock per student, in id
// order so two transactions sharing members cannot deadlock.
func (r pairs) LockMembers(ctx context.Context, year int, studentIDs ...string) error {
	ids := slices.Clone(studentIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return r.s.run(ctx, func(tx *gorm.DB) error {
		for _, id := range ids {
			key := fmt.Sprintf("student_pair:%s:%d", id, year)
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r pairs) first(ctx context.Context, query string, args ...any) (*store.StudentPair, error) {
	var p store.StudentPair
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where(query, args...).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r pairs) DeleteAll(ctx context.Context) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(&store.StudentPair{}).Error
	})
}

type admins struct{ s *Store }

func (r admins) Get(ctx context.Context, username string) (*store.Admin, error) {
	var a store.Admin
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.First(&a, "username = ?", username).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r admins) Create(ctx context.Context, a *store.Admin) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
}

type periods struct{ s *Store }

func (r periods) Get(ctx context.Context, name string) (*store.Period, error) {
	var p store.Period
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.First(&p, "name = ?", name).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r periods) Upsert(ctx context.Context, p *store.Period) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_at", "end_at", "updated_at"}),
		}).Create(p).Error
	})
}
