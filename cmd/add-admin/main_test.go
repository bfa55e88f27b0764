package main

import (
	"context"
	"testing"

	"github.com/tus-lockers/locker-backend/internal/auth"
	"github.com/tus-lockers/locker-backend/internal/store/memstore"
)

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	ms := memstore.New()

	if err := createAdmin(ctx, ms.Admins(), "staff", "short"); err == nil {
		t.Error("expected short password to be rejected")
	}
	if err := createAdmin(ctx, ms.Admins(), "staff", "correct horse"); err != nil {
		t.Fatalf("create: %v", err)
	}
	a, err := ms.Admins().Get(ctx, "staff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := auth.CheckPassword(a.HashedPassword, "correct horse"); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if err := createAdmin(ctx, ms.Admins(), "staff", "another one"); err == nil {
		t.Error("expected duplicate admin to be rejected")
	}
}
