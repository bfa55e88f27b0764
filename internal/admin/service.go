// Package admin is the administrator console: assignment search, the yearly
// locker reset, registration windows and circle document review.
package admin

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tus-lockers/locker-backend/internal/apperr"
	"github.com/tus-lockers/locker-backend/internal/auth"
	"github.com/tus-lockers/locker-backend/internal/locker"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/validate"
)

type Service struct {
	store     store.Store
	lockers   *locker.Service
	resetHash string
}

func NewService(s store.Store, lockers *locker.Service, resetHash string) *Service {
	return &Service{store: s, lockers: lockers, resetHash: resetHash}
}

type SearchQuery struct {
	Year       int
	Floor      string
	FamilyName string
	GivenName  string
}

type SearchResult struct {
	LockerID string         `json:"locker_id"`
	Floor    int            `json:"floor"`
	Year     int            `json:"year"`
	MainUser store.UserInfo `json:"main_user"`
	CoUser   store.UserInfo `json:"co_user"`
}

// Search finds the assignments of every pair with a member whose names start
// with the given prefixes. Empty prefixes match everyone.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if q.Year < validate.MinSearchYear {
		return nil, apperr.Invalid("invalid year")
	}
	prefix, err := validate.Floor(q.Floor)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalid, "invalid floor", err)
	}
	family := validate.NormalizeName(q.FamilyName)
	given := validate.NormalizeName(q.GivenName)
	if validate.NamePrefix(family) != nil || validate.NamePrefix(given) != nil {
		return nil, apperr.Invalid("invalid name")
	}

	students, err := s.store.Students().SearchByName(ctx, family, given)
	if err != nil {
		return nil, apperr.FromStore("failed to search students", err)
	}

	seen := make(map[string]struct{})
	var pairs []*store.StudentPair
	for _, st := range students {
		pair, err := s.store.Pairs().GetByMember(ctx, st.StudentID, q.Year)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.FromStore("failed to get student_pair", err)
		}
		if _, dup := seen[pair.PairID]; dup {
			continue
		}
		seen[pair.PairID] = struct{}{}
		pairs = append(pairs, pair)
	}

	results := make([]SearchResult, 0, len(pairs))
	for _, pair := range pairs {
		records, err := s.store.Assignments().List(ctx, q.Year, prefix, pair.PairID)
		if err != nil {
			return nil, apperr.FromStore("failed to get assignments", err)
		}
		if len(records) == 0 {
			continue
		}
		main, err := s.store.Students().Get(ctx, pair.StudentID1)
		if err != nil {
			return nil, apperr.FromStore("failed to get student", err)
		}
		co, err := s.store.Students().Get(ctx, pair.StudentID2)
		if err != nil {
			return nil, apperr.FromStore("failed to get student", err)
		}
		for _, rec := range records {
			results = append(results, SearchResult{
				LockerID: rec.LockerID,
				Floor:    validate.FloorOf(rec.LockerID),
				Year:     rec.Year,
				MainUser: main.Info(),
				CoUser:   co.Info(),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].LockerID < results[j].LockerID })
	return results, nil
}

// Reset checks the reset password and returns every occupied locker to
// vacant.
func (s *Service) Reset(ctx context.Context, password string) (int64, error) {
	if password == "" {
		return 0, apperr.Invalid("password is required")
	}
	if err := auth.VerifyPHC(s.resetHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return 0, apperr.Unauthorized("invalid password")
		}
		return 0, apperr.Internal("reset password is not configured", err)
	}
	return s.lockers.Reset(ctx)
}

func (s *Service) Period(ctx context.Context, name string) (*store.Period, error) {
	if err := periodName(name); err != nil {
		return nil, err
	}
	p, err := s.store.Periods().Get(ctx, name)
	if err != nil {
		return nil, apperr.FromStore("failed to get registration period", err)
	}
	return p, nil
}

func (s *Service) SetPeriod(ctx context.Context, name string, start, end time.Time) (*store.Period, error) {
	if err := periodName(name); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return nil, apperr.Invalid("start_at must be before end_at")
	}
	p := &store.Period{Name: name, StartAt: start, EndAt: end}
	if err := s.store.Periods().Upsert(ctx, p); err != nil {
		return nil, apperr.FromStore("failed to update registration period", err)
	}
	return p, nil
}

func periodName(name string) error {
	switch store.Flow(name) {
	case store.FlowLocker, store.FlowCircle:
		return nil
	}
	return apperr.Invalid("invalid period name")
}
