package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tus-lockers/locker-backend/internal/captcha"
	"github.com/tus-lockers/locker-backend/internal/config"
	"github.com/tus-lockers/locker-backend/internal/db"
	"github.com/tus-lockers/locker-backend/internal/gform"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/router"
	"github.com/tus-lockers/locker-backend/internal/store/gormstore"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	_ = godotenv.Load(".env.local")
	cfg := config.Load(flags)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] %v", err)
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("[main] migrate: %v", err)
	}
	st := gormstore.New(conn, db.NewGate(cfg.DBMaxOpenConns, cfg.DBAcquireTimeout))

	dispatcher, err := mail.New(cfg)
	if err != nil {
		log.Fatalf("[main] mail: %v", err)
	}

	h := router.New(router.Deps{
		Config:  cfg,
		Store:   st,
		Mail:    dispatcher,
		Captcha: captcha.New(cfg.RecaptchaSecretKey, cfg.RecaptchaDisable),
		Form: gform.New(gform.Config{
			TokenURL:     cfg.OAuthURI,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			UpdateURL:    cfg.GFormUpdateURL,
		}),
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port :%s (mail backend %s, same-student %t, trusted proxies %v)", cfg.Port, mail.BackendFor(cfg), cfg.SameStudentEnable, cfg.TrustedProxies)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
