package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"github.com/tus-lockers/locker-backend/internal/config"
	"github.com/tus-lockers/locker-backend/internal/db"
	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/store/gormstore"
)

var (
	olderThan = pflag.Duration("older-than", 72*time.Hour, "Delete auth sessions created before now minus this age")
	schedule  = pflag.String("schedule", "", `Cron schedule (e.g. "@hourly"); empty runs once and exits`)
)

func main() {
	_ = godotenv.Load(".env.local")
	pflag.Parse()
	if *olderThan <= 0 {
		log.Fatalf("[authsweep] --older-than must be positive")
	}

	cfg := config.Load(config.Flags{})
	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("[authsweep] %v", err)
	}
	s := gormstore.New(conn, db.NewGate(cfg.DBMaxOpenConns, cfg.DBAcquireTimeout))

	if *schedule == "" {
		if err := sweep(context.Background(), s.Auth(), cfg.Now(), *olderThan); err != nil {
			log.Fatalf("[authsweep] %v", err)
		}
		return
	}

	c := cron.New(cron.WithLocation(cfg.Location))
	if _, err := c.AddFunc(*schedule, func() {
		if err := sweep(context.Background(), s.Auth(), cfg.Now(), *olderThan); err != nil {
			log.Printf("[authsweep] %v", err)
		}
	}); err != nil {
		log.Fatalf("[authsweep] invalid schedule %q: %v", *schedule, err)
	}
	c.Start()
	log.Printf("[authsweep] running on schedule %q", *schedule)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	<-c.Stop().Done()
}

func sweep(ctx context.Context, sessions store.AuthSessions, now time.Time, age time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := now.Add(-age)
	n, err := sessions.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Printf("[authsweep] deleted %d auth sessions created before %s", n, cutoff.Format(time.RFC3339))
	return nil
}
