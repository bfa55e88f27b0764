// Package memstore is an in-memory store.Store. Every operation, and every
// transaction as a whole, runs under one mutex, so transactions are
// serializable; a failed transaction restores the snapshot taken when it
// began.
package memstore

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tus-lockers/locker-backend/internal/store"
)

type state struct {
	students    map[string]store.Student
	pairs       map[string]store.StudentPair
	lockers     map[string]store.Locker
	assignments map[string]store.AssignmentRecord
	sessions    map[string]store.Session
	orgs        map[string]store.Organization
	reps        map[string]store.Representatives
	regs        map[string]store.Registration
	admins      map[string]store.Admin
	periods     map[string]store.Period
}

func newState() *state {
	return &state{
		students:    map[string]store.Student{},
		pairs:       map[string]store.StudentPair{},
		lockers:     map[string]store.Locker{},
		assignments: map[string]store.AssignmentRecord{},
		sessions:    map[string]store.Session{},
		orgs:        map[string]store.Organization{},
		reps:        map[string]store.Representatives{},
		regs:        map[string]store.Registration{},
		admins:      map[string]store.Admin{},
		periods:     map[string]store.Period{},
	}
}

func (s *state) clone() *state {
	return &state{
		students:    maps.Clone(s.students),
		pairs:       maps.Clone(s.pairs),
		lockers:     maps.Clone(s.lockers),
		assignments: maps.Clone(s.assignments),
		sessions:    maps.Clone(s.sessions),
		orgs:        maps.Clone(s.orgs),
		reps:        maps.Clone(s.reps),
		regs:        maps.Clone(s.regs),
		admins:      maps.Clone(s.admins),
		periods:     maps.Clone(s.periods),
	}
}

type shared struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
}

type Store struct {
	sh   *shared
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{sh: &shared{st: newState(), failures: map[string]error{}}}
}

// FailOn makes the named operation (for example "Pairs.Create") return err
// until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	if err == nil {
		delete(s.sh.failures, op)
		return
	}
	s.sh.failures[op] = err
}

func (s *Store) Students() store.Students       { return students{s} }
func (s *Store) Pairs() store.Pairs             { return pairs{s} }
func (s *Store) Lockers() store.Lockers         { return lockers{s} }
func (s *Store) Assignments() store.Assignments { return assignments{s} }
func (s *Store) Auth() store.AuthSessions       { return authSessions{s} }
func (s *Store) Circles() store.Circles         { return circles{s} }
func (s *Store) Admins() store.Admins           { return admins{s} }
func (s *Store) Periods() store.Periods         { return periods{s} }

func (s *Store) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.st.clone()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.st = snapshot
		return err
	}
	return nil
}

// do runs fn with the state locked, unless the caller already holds the lock
// through Tx.
func (s *Store) do(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx {
		s.sh.mu.Lock()
		defer s.sh.mu.Unlock()
	}
	if err, ok := s.sh.failures[op]; ok {
		return err
	}
	return fn(s.sh.st)
}

func now() time.Time { return time.Now() }

func sortedBy[T any](m map[string]T, keep func(T) bool, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

func hasPrefix(s, prefix string) bool { return strings.HasPrefix(s, prefix) }
