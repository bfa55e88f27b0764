package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tus-lockers/locker-backend/internal/store"
)

func TestStudentUpsertKeepsNames(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := &store.Student{StudentID: "4622999", FamilyName: "テスト", GivenName: "太郎"}
	if err := s.Students().Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again := &store.Student{StudentID: "4622999", FamilyName: "別名", GivenName: "花子"}
	if err := s.Students().Upsert(ctx, again); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := s.Students().Get(ctx, "4622999")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FamilyName != "テスト" || got.GivenName != "太郎" {
		t.Errorf("names overwritten: %+v", got)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at not refreshed: %+v", got)
	}
}

func TestAssignmentUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Assignments().Create(ctx, &store.AssignmentRecord{PairID: "p1", LockerID: "2001", Year: 2026}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Assignments().Create(ctx, &store.AssignmentRecord{PairID: "p2", LockerID: "2001", Year: 2026})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected locker/year conflict, got %v", err)
	}
	err = s.Assignments().Create(ctx, &store.AssignmentRecord{PairID: "p1", LockerID: "2002", Year: 2026})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected pair/year conflict, got %v", err)
	}
	if err := s.Assignments().Create(ctx, &store.AssignmentRecord{PairID: "p1", LockerID: "2001", Year: 2027}); err != nil {
		t.Fatalf("next year should be free: %v", err)
	}
}

func TestTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Lockers().Upsert(ctx, []store.Locker{{LockerID: "2001", Status: store.StatusVacant}})

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx store.Store) error {
		if err := tx.Lockers().SetStatus(ctx, "2001", store.StatusOccupied); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	l, _ := s.Lockers().Get(ctx, "2001")
	if l.Status != store.StatusVacant {
		t.Fatalf("expected rollback to vacant, got %s", l.Status)
	}
}

func TestAdvancePhaseIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	sess := &store.Session{
		Auth:    store.Auth{AuthID: "a1", MainAuthToken: "m", CoAuthToken: "c", Phase: store.PhaseMainAuth},
		Payload: store.LockerPayload{},
	}
	if err := s.Auth().Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Auth().AdvancePhase(ctx, "a1", store.PhaseMainAuth, store.PhaseCoAuth)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, store.ErrConflict) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one transition, got %d", wins)
	}
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("db down")
	s.FailOn("Lockers.List", boom)
	if _, err := s.Lockers().List(ctx, ""); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.FailOn("Lockers.List", nil)
	if _, err := s.Lockers().List(ctx, ""); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}
