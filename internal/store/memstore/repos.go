package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tus-lockers/locker-backend/internal/store"
)

type students struct{ s *Store }

func (r students) Upsert(ctx context.Context, st *store.Student) error {
	return r.s.do(ctx, "Students.Upsert", func(d *state) error {
		t := now()
		if existing, ok := d.students[st.StudentID]; ok {
			existing.UpdatedAt = t
			d.students[st.StudentID] = existing
			*st = existing
			return nil
		}
		st.CreatedAt, st.UpdatedAt = t, t
		d.students[st.StudentID] = *st
		return nil
	})
}

func (r students) Get(ctx context.Context, studentID string) (*store.Student, error) {
	var out store.Student
	err := r.s.do(ctx, "Students.Get", func(d *state) error {
		st, ok := d.students[studentID]
		if !ok {
			return store.ErrNotFound
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r students) SearchByName(ctx context.Context, familyPrefix, givenPrefix string) ([]store.Student, error) {
	var out []store.Student
	err := r.s.do(ctx, "Students.SearchByName", func(d *state) error {
		out = sortedBy(d.students, func(st store.Student) bool {
			return hasPrefix(st.FamilyName, familyPrefix) && hasPrefix(st.GivenName, givenPrefix)
		}, func(st store.Student) string { return st.StudentID })
		return nil
	})
	return out, err
}

func (r students) DeleteAll(ctx context.Context) error {
	return r.s.do(ctx, "Students.DeleteAll", func(d *state) error {
		d.students = map[string]store.Student{}
		return nil
	})
}

type pairs struct{ s *Store }

func (r pairs) Create(ctx context.Context, p *store.StudentPair) error {
	return r.s.do(ctx, "Pairs.Create", func(d *state) error {
		if _, ok := d.pairs[p.PairID]; ok {
			return fmt.Errorf("%w: student_pair_pkey", store.ErrConflict)
		}
		for _, existing := range d.pairs {
			if existing.Year != p.Year {
				continue
			}
			if existing.StudentID1 == p.StudentID1 {
				return fmt.Errorf("%w: idx_student_pair_id1_year", store.ErrConflict)
			}
			if existing.StudentID2 == p.StudentID2 {
				return fmt.Errorf("%w: idx_student_pair_id2_year", store.ErrConflict)
			}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now()
		}
		d.pairs[p.PairID] = *p
		return nil
	})
}

func (r pairs) Get(ctx context.Context, pairID string) (*store.StudentPair, error) {
	return r.find(ctx, "Pairs.Get", func(p store.StudentPair) bool { return p.PairID == pairID })
}

func (r pairs) GetByRepresentative(ctx context.Context, studentID string, year int) (*store.StudentPair, error) {
	return r.find(ctx, "Pairs.GetByRepresentative", func(p store.StudentPair) bool {
		return p.StudentID1 == studentID && p.Year == year
	})
}

func (r pairs) GetByMember(ctx context.Context, studentID string, year int) (*store.StudentPair, error) {
	return r.find(ctx, "Pairs.GetByMember", func(p store.StudentPair) bool {
		return (p.StudentID1 == studentID || p.StudentID2 == studentID) && p.Year == year
	})
}

// LockMembers has nothing to do: every transaction already holds the store
// mutex.
func (r pairs) LockMembers(ctx context.Context, year int, studentIDs ...string) error {
	return r.s.do(ctx, "Pairs.LockMembers", func(*state) error { return nil })
}

func (r pairs) find(ctx context.Context, op string, match func(store.StudentPair) bool) (*store.StudentPair, error) {
	var out store.StudentPair
	err := r.s.do(ctx, op, func(d *state) error {
		found := sortedBy(d.pairs, match, func(p store.StudentPair) string { return p.PairID })
		if len(found) == 0 {
			return store.ErrNotFound
		}
		out = found[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r pairs) DeleteAll(ctx context.Context) error {
	return r.s.do(ctx, "Pairs.DeleteAll", func(d *state) error {
		d.pairs = map[string]store.StudentPair{}
		return nil
	})
}

type lockers struct{ s *Store }

func (r lockers) Upsert(ctx context.Context, ls []store.Locker) error {
	return r.s.do(ctx, "Lockers.Upsert", func(d *state) error {
		for _, l := range ls {
			if l.Status == "" {
				l.Status = store.StatusVacant
			}
			d.lockers[l.LockerID] = l
		}
		return nil
	})
}

func (r lockers) Get(ctx context.Context, lockerID string) (*store.Locker, error) {
	return r.get(ctx, "Lockers.Get", lockerID)
}

// GetForUpdate needs no extra locking: a transaction already holds the store.
func (r lockers) GetForUpdate(ctx context.Context, lockerID string) (*store.Locker, error) {
	return r.get(ctx, "Lockers.GetForUpdate", lockerID)
}

func (r lockers) get(ctx context.Context, op, lockerID string) (*store.Locker, error) {
	var out store.Locker
	err := r.s.do(ctx, op, func(d *state) error {
		l, ok := d.lockers[lockerID]
		if !ok {
			return store.ErrNotFound
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r lockers) List(ctx context.Context, floorPrefix string) ([]store.Locker, error) {
	var out []store.Locker
	err := r.s.do(ctx, "Lockers.List", func(d *state) error {
		out = sortedBy(d.lockers, func(l store.Locker) bool { return hasPrefix(l.LockerID, floorPrefix) },
			func(l store.Locker) string { return l.LockerID })
		return nil
	})
	return out, err
}

func (r lockers) SetStatus(ctx context.Context, lockerID string, status store.LockerStatus) error {
	return r.s.do(ctx, "Lockers.SetStatus", func(d *state) error {
		l, ok := d.lockers[lockerID]
		if !ok {
			return store.ErrNotFound
		}
		l.Status = status
		d.lockers[lockerID] = l
		return nil
	})
}

func (r lockers) UpdateStatus(ctx context.Context, floorPrefix string, from, to store.LockerStatus) (int64, error) {
	var n int64
	err := r.s.do(ctx, "Lockers.UpdateStatus", func(d *state) error {
		for id, l := range d.lockers {
			if hasPrefix(id, floorPrefix) && l.Status == from {
				l.Status = to
				d.lockers[id] = l
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r lockers) DeleteAll(ctx context.Context) error {
	return r.s.do(ctx, "Lockers.DeleteAll", func(d *state) error {
		d.lockers = map[string]store.Locker{}
		return nil
	})
}

type assignments struct{ s *Store }

func (r assignments) Create(ctx context.Context, a *store.AssignmentRecord) error {
	return r.s.do(ctx, "Assignments.Create", func(d *state) error {
		if a.RecordID == "" {
			a.RecordID = uuid.NewString()
		}
		for _, existing := range d.assignments {
			if existing.DeletedAt != nil || existing.Year != a.Year {
				continue
			}
			if existing.PairID == a.PairID {
				return fmt.Errorf("%w: assignment_record_pair_year_active", store.ErrConflict)
			}
			if existing.LockerID == a.LockerID {
				return fmt.Errorf("%w: assignment_record_locker_year_active", store.ErrConflict)
			}
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now()
		}
		d.assignments[a.RecordID] = *a
		return nil
	})
}

func (r assignments) GetByPair(ctx context.Context, pairID string, year int) (*store.AssignmentRecord, error) {
	var out store.AssignmentRecord
	err := r.s.do(ctx, "Assignments.GetByPair", func(d *state) error {
		for _, a := range d.assignments {
			if a.PairID == pairID && a.Year == year && a.DeletedAt == nil {
				out = a
				return nil
			}
		}
		return store.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r assignments) List(ctx context.Context, year int, floorPrefix, pairID string) ([]store.AssignmentRecord, error) {
	var out []store.AssignmentRecord
	err := r.s.do(ctx, "Assignments.List", func(d *state) error {
		out = sortedBy(d.assignments, func(a store.AssignmentRecord) bool {
			return a.Year == year && a.DeletedAt == nil &&
				hasPrefix(a.LockerID, floorPrefix) &&
				(pairID == "" || a.PairID == pairID)
		}, func(a store.AssignmentRecord) string { return a.LockerID })
		return nil
	})
	return out, err
}

func (r assignments) DeleteAll(ctx context.Context) error {
	return r.s.do(ctx, "Assignments.DeleteAll", func(d *state) error {
		d.assignments = map[string]store.AssignmentRecord{}
		return nil
	})
}

type admins struct{ s *Store }

func (r admins) Get(ctx context.Context, username string) (*store.Admin, error) {
	var out store.Admin
	err := r.s.do(ctx, "Admins.Get", func(d *state) error {
		a, ok := d.admins[username]
		if !ok {
			return store.ErrNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r admins) Create(ctx context.Context, a *store.Admin) error {
	return r.s.do(ctx, "Admins.Create", func(d *state) error {
		if _, ok := d.admins[a.Username]; ok {
			return fmt.Errorf("%w: admin_pkey", store.ErrConflict)
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now()
		}
		d.admins[a.Username] = *a
		return nil
	})
}

type periods struct{ s *Store }

func (r periods) Get(ctx context.Context, name string) (*store.Period, error) {
	var out store.Period
	err := r.s.do(ctx, "Periods.Get", func(d *state) error {
		p, ok := d.periods[name]
		if !ok {
			return store.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r periods) Upsert(ctx context.Context, p *store.Period) error {
	return r.s.do(ctx, "Periods.Upsert", func(d *state) error {
		p.UpdatedAt = now()
		d.periods[p.Name] = *p
		return nil
	})
}
