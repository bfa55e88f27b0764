// Package store defines the persistence capabilities, one interface per
// aggregate. gormstore binds them to Postgres; memstore keeps them in memory
// for tests.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record conflicts with an existing row")
	ErrUnavailable = errors.New("database unavailable")
)

type Students interface {
	// Upsert inserts s, or refreshes updated_at when the id exists. Names of an
	// existing student are never overwritten.
	Upsert(ctx context.Context, s *Student) error
	Get(ctx context.Context, studentID string) (*Student, error)
	// SearchByName prefix-matches both names; an empty prefix matches all.
	SearchByName(ctx context.Context, familyPrefix, givenPrefix string) ([]Student, error)
	DeleteAll(ctx context.Context) error
}

type Pairs interface {
	Create(ctx context.Context, p *StudentPair) error
	Get(ctx context.Context, pairID string) (*StudentPair, error)
	GetByRepresentative(ctx context.Context, studentID string, year int) (*StudentPair, error)
	// GetByMember finds the pair the student belongs to in either role.
	GetByMember(ctx context.Context, studentID string, year int) (*StudentPair, error)
	// LockMembers serializes pair creation for the given students and year
	// until the enclosing transaction ends. Call it inside Tx, before the
	// membership check.
	LockMembers(ctx context.Context, year int, studentIDs ...string) error
	DeleteAll(ctx context.Context) error
}

type Lockers interface {
	Upsert(ctx context.Context, lockers []Locker) error
	Get(ctx context.Context, lockerID string) (*Locker, error)
	// GetForUpdate reads the locker holding a row lock until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, lockerID string) (*Locker, error)
	// List returns the lockers whose id starts with floorPrefix, sorted by id.
	List(ctx context.Context, floorPrefix string) ([]Locker, error)
	SetStatus(ctx context.Context, lockerID string, status LockerStatus) error
	// UpdateStatus moves every locker under floorPrefix from one status to
	// another and returns the number of rows changed.
	UpdateStatus(ctx context.Context, floorPrefix string, from, to LockerStatus) (int64, error)
	DeleteAll(ctx context.Context) error
}

type Assignments interface {
	Create(ctx context.Context, a *AssignmentRecord) error
	GetByPair(ctx context.Context, pairID string, year int) (*AssignmentRecord, error)
	// List filters non-deleted records by year and optionally by floor prefix
	// and pair id, sorted by locker id.
	List(ctx context.Context, year int, floorPrefix, pairID string) ([]AssignmentRecord, error)
	DeleteAll(ctx context.Context) error
}

type AuthSessions interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, authID string) (*Session, error)
	GetByMainToken(ctx context.Context, token string) (*Session, error)
	GetByCoToken(ctx context.Context, token string) (*Session, error)
	// AdvancePhase moves the session from one phase to the next. It fails with
	// ErrConflict when the session is no longer at from.
	AdvancePhase(ctx context.Context, authID string, from, to Phase) error
	// Delete removes the session and its payload.
	Delete(ctx context.Context, authID string) error
	DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error)
	DeleteAll(ctx context.Context) error
}

type Circles interface {
	// UpsertOrganization matches by name and fills in OrganizationID.
	UpsertOrganization(ctx context.Context, o *Organization) error
	CreateRepresentatives(ctx context.Context, r *Representatives) error
	CreateRegistration(ctx context.Context, r *Registration) error
	GetRegistration(ctx context.Context, registrationID string) (*Registration, error)
	// ListRegistrations returns registrations of a year with their
	// organization loaded. An empty status matches all.
	ListRegistrations(ctx context.Context, year int, status RegistrationStatus) ([]Registration, error)
	// ReviewRegistration records a decision on a pending registration and
	// fails with ErrConflict when it is no longer pending.
	ReviewRegistration(ctx context.Context, registrationID string, status RegistrationStatus, comment, reviewer string, at time.Time) error
	DeleteAll(ctx context.Context) error
}

type Admins interface {
	Get(ctx context.Context, username string) (*Admin, error)
	Create(ctx context.Context, a *Admin) error
}

type Periods interface {
	Get(ctx context.Context, name string) (*Period, error)
	Upsert(ctx context.Context, p *Period) error
}

// Store aggregates every repository. Tx runs fn against a Store bound to a
// single transaction; fn's error rolls it back.
type Store interface {
	Students() Students
	Pairs() Pairs
	Lockers() Lockers
	Assignments() Assignments
	Auth() AuthSessions
	Circles() Circles
	Admins() Admins
	Periods() Periods
	Tx(ctx context.Context, fn func(tx Store) error) error
}
