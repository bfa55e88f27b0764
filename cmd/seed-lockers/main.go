package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	filePath    = pflag.String("file", "", "Path to the locker inventory YAML (required)")
	dsn         = pflag.String("dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = pflag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	advisoryKey = pflag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key. 0 = disabled")
)

func main() {
	_ = godotenv.Load(".env.local")
	pflag.Parse()
	if *filePath == "" {
		fatalf("--file is required")
	}
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		fatalf("read %s: %v", *filePath, err)
	}
	blocks, err := parseInventory(raw)
	if err != nil {
		fatalf("inventory: %v", err)
	}
	lockers, err := expand(blocks)
	if err != nil {
		fatalf("inventory: %v", err)
	}

	fmt.Printf("Loaded %d lockers in %d blocks from %s\n", len(lockers), len(blocks), *filePath)
	if *dryRun {
		printPlan(lockers)
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	before, err := countLockers(ctx, tx)
	if err != nil {
		fatalf("pre-count: %v", err)
	}
	if err := upsertAll(ctx, tx, lockers); err != nil {
		fatalf("upsert: %v", err)
	}
	after, err := countLockers(ctx, tx)
	if err != nil {
		fatalf("post-count: %v", err)
	}
	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Seed complete: %d lockers before, %d after\n", before, after)
}

func printPlan(lockers []lockerRow) {
	byStatus := map[string]int{}
	for _, l := range lockers {
		byStatus[l.Status]++
	}
	fmt.Println("Plan preview:")
	fmt.Printf("  Lockers to upsert: %d\n", len(lockers))
	for status, n := range byStatus {
		fmt.Printf("  %s: %d\n", status, n)
	}
}

func countLockers(ctx context.Context, tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT count(*) FROM locker`).Scan(&n)
	return n, err
}

// upsertAll inserts new lockers and refreshes the location of existing ones.
// An existing locker keeps its status unless the file marks it out-of-work.
func upsertAll(ctx context.Context, tx *sql.Tx, lockers []lockerRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO locker (locker_id, location, status) VALUES ($1, $2, $3)
		ON CONFLICT (locker_id) DO UPDATE SET
			location = EXCLUDED.location,
			status = CASE WHEN EXCLUDED.status = 'out-of-work' THEN EXCLUDED.status ELSE locker.status END`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range lockers {
		if _, err := stmt.ExecContext(ctx, l.LockerID, l.Location, l.Status); err != nil {
			return fmt.Errorf("locker %s: %w", l.LockerID, err)
		}
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}
