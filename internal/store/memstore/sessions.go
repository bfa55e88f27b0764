package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tus-lockers/locker-backend/internal/store"
)

type authSessions struct{ s *Store }

func (r authSessions) Create(ctx context.Context, sess *store.Session) error {
	return r.s.do(ctx, "Auth.Create", func(d *state) error {
		if sess.Payload == nil {
			return fmt.Errorf("auth session without payload")
		}
		if _, ok := d.sessions[sess.Auth.AuthID]; ok {
			return fmt.Errorf("%w: auth_pkey", store.ErrConflict)
		}
		for _, existing := range d.sessions {
			if existing.Auth.MainAuthToken == sess.Auth.MainAuthToken {
				return fmt.Errorf("%w: idx_auth_main_auth_token", store.ErrConflict)
			}
		}
		sess.Auth.Flow = sess.Payload.Flow()
		if sess.Auth.CreatedAt.IsZero() {
			sess.Auth.CreatedAt = now()
		}
		d.sessions[sess.Auth.AuthID] = *sess
		return nil
	})
}

func (r authSessions) Get(ctx context.Context, authID string) (*store.Session, error) {
	return r.find(ctx, "Auth.Get", func(s store.Session) bool { return s.Auth.AuthID == authID })
}

func (r authSessions) GetByMainToken(ctx context.Context, token string) (*store.Session, error) {
	return r.find(ctx, "Auth.GetByMainToken", func(s store.Session) bool { return s.Auth.MainAuthToken == token })
}

func (r authSessions) GetByCoToken(ctx context.Context, token string) (*store.Session, error) {
	return r.find(ctx, "Auth.GetByCoToken", func(s store.Session) bool { return s.Auth.CoAuthToken == token })
}

func (r authSessions) find(ctx context.Context, op string, match func(store.Session) bool) (*store.Session, error) {
	var out store.Session
	err := r.s.do(ctx, op, func(d *state) error {
		for _, s := range d.sessions {
			if match(s) {
				out = s
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

func (r authSessions) AdvancePhase(ctx context.Context, authID string, from, to store.Phase) error {
	return r.s.do(ctx, "Auth.AdvancePhase", func(d *state) error {
		s, ok := d.sessions[authID]
		if !ok || s.Auth.Phase != from {
			return store.ErrConflict
		}
		s.Auth.Phase = to
		d.sessions[authID] = s
		return nil
	})
}

func (r authSessions) Delete(ctx context.Context, authID string) error {
	return r.s.do(ctx, "Auth.Delete", func(d *state) error {
		if _, ok := d.sessions[authID]; !ok {
			return store.ErrNotFound
		}
		delete(d.sessions, authID)
		return nil
	})
}

func (r authSessions) DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, "Auth.DeleteCreatedBefore", func(d *state) error {
		for id, s := range d.sessions {
			if s.Auth.CreatedAt.Before(t) {
				delete(d.sessions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r authSessions) DeleteAll(ctx context.Context) error {
	return r.s.do(ctx, "Auth.DeleteAll", func(d *state) error {
		d.sessions = map[string]store.Session{}
		return nil
	})
}

type circles struct{ s *Store }

func (r circles) UpsertOrganization(ctx context.Context, o *store.Organization) error {
	return r.s.do(ctx, "Circles.UpsertOrganization", func(d *state) error {
		t := now()
		for id, existing := range d.orgs {
			if existing.Name == o.Name {
				existing.Ruby, existing.Email, existing.ClubType = o.Ruby, o.Email, o.ClubType
				existing.UpdatedAt = t
				d.orgs[id] = existing
				*o = existing
				return nil
			}
		}
		if o.OrganizationID == "" {
			o.OrganizationID = uuid.NewString()
		}
		o.CreatedAt, o.UpdatedAt = t, t
		d.orgs[o.OrganizationID] = *o
		return nil
	})
}

func (r circles) CreateRepresentatives(ctx context.Context, rep *store.Representatives) error {
	return r.s.do(ctx, "Circles.CreateRepresentatives", func(d *state) error {
		for _, existing := range d.reps {
			if existing.OrganizationID == rep.OrganizationID && existing.Year == rep.Year {
				return fmt.Errorf("%w: idx_representatives_org_year", store.ErrConflict)
			}
		}
		if rep.CreatedAt.IsZero() {
			rep.CreatedAt = now()
		}
		d.reps[rep.ID] = *rep
		return nil
	})
}

func (r circles) CreateRegistration(ctx context.Context, reg *store.Registration) error {
	return r.s.do(ctx, "Circles.CreateRegistration", func(d *state) error {
		for _, existing := range d.regs {
			if existing.OrganizationID == reg.OrganizationID && existing.Year == reg.Year {
				return fmt.Errorf("%w: idx_registration_org_year", store.ErrConflict)
			}
		}
		t := now()
		reg.CreatedAt, reg.UpdatedAt = t, t
		if reg.Status == "" {
			reg.Status = store.RegistrationPending
		}
		row := *reg
		row.Organization = nil
		d.regs[reg.RegistrationID] = row
		return nil
	})
}

func (r circles) GetRegistration(ctx context.Context, registrationID string) (*store.Registration, error) {
	var out store.Registration
	err := r.s.do(ctx, "Circles.GetRegistration", func(d *state) error {
		reg, ok := d.regs[registrationID]
		if !ok {
			return store.ErrNotFound
		}
		out = withOrganization(d, reg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r circles) ListRegistrations(ctx context.Context, year int, status store.RegistrationStatus) ([]store.Registration, error) {
	var out []store.Registration
	err := r.s.do(ctx, "Circles.ListRegistrations", func(d *state) error {
		found := sortedBy(d.regs, func(reg store.Registration) bool {
			return reg.Year == year && (status == "" || reg.Status == status)
		}, func(reg store.Registration) string {
			return reg.CreatedAt.Format(time.RFC3339Nano) + reg.RegistrationID
		})
		for _, reg := range found {
			out = append(out, withOrganization(d, reg))
		}
		return nil
	})
	return out, err
}

func (r circles) ReviewRegistration(ctx context.Context, registrationID string, status store.RegistrationStatus, comment, reviewer string, at time.Time) error {
	return r.s.do(ctx, "Circles.ReviewRegistration", func(d *state) error {
		reg, ok := d.regs[registrationID]
		if !ok {
			return store.ErrNotFound
		}
		if reg.Status != store.RegistrationPending {
			return store.ErrConflict
		}
		reg.Status = status
		reg.ReviewComment = comment
		reg.ReviewedBy = &reviewer
		reg.ReviewedAt = &at
		reg.UpdatedAt = now()
		d.regs[registrationID] = reg
		return nil
	})
}

func (r circles) DeleteAll(ctx context.Context) error {
	return r.s.do(ctx, "Circles.DeleteAll", func(d *state) error {
		d.orgs = map[string]store.Organization{}
		d.reps = map[string]store.Representatives{}
		d.regs = map[string]store.Registration{}
		return nil
	})
}

func withOrganization(d *state, reg store.Registration) store.Registration {
	if org, ok := d.orgs[reg.OrganizationID]; ok {
		reg.Organization = &org
	}
	return reg
}
