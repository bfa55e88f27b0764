package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tus-lockers/locker-backend/internal/auth"
	"github.com/tus-lockers/locker-backend/internal/config"
	"github.com/tus-lockers/locker-backend/internal/db"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/store/gormstore"
)

var username = pflag.String("username", "", "Administrator username (required)")

func main() {
	_ = godotenv.Load(".env.local")
	pflag.Parse()
	if *username == "" {
		fatalf("--username is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		fatalf("read password: %v", err)
	}
	password = strings.TrimRight(password, "\r\n")

	cfg := config.Load(config.Flags{})
	conn, err := db.Connect(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	s := gormstore.New(conn, db.NewGate(cfg.DBMaxOpenConns, cfg.DBAcquireTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := createAdmin(ctx, s.Admins(), *username, password); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Created administrator %s\n", *username)
}

func createAdmin(ctx context.Context, admins store.Admins, username, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	err = admins.Create(ctx, &store.Admin{Username: username, HashedPassword: hashed})
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("administrator %s already exists", username)
	}
	return err
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}
