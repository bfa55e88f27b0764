// Package gormstore binds the store interfaces to Postgres through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tus-lockers/locker-backend/internal/db"
	"github.com/tus-lockers/locker-backend/internal/store"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// Store implements store.Store. Every call outside a transaction first takes
// a slot from the gate; a transaction holds one slot for its whole life.
type Store struct {
	db   *gorm.DB
	gate *db.Gate
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New(conn *gorm.DB, gate *db.Gate) *Store {
	return &Store{db: conn, gate: gate}
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
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, gate: s.gate, inTx: true})
	})
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	if s.gate == nil {
		return func() {}, nil
	}
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		if errors.Is(err, db.ErrPoolTimeout) {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return nil, err
	}
	return release, nil
}

// run executes fn with a context-bound handle and maps driver errors onto the
// store sentinels.
func (s *Store) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if !s.inTx {
		release, err := s.acquire(ctx)
		if err != nil {
			return err
		}
		defer release()
	}
	return mapErr(fn(s.db.WithContext(ctx)))
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// prefixPattern builds a LIKE pattern; the inputs are validated names and
// digits, so no wildcard escaping is needed.
func prefixPattern(prefix string) string {
	return prefix + "%"
}
