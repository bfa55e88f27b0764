// Package router assembles every feature under /api.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tus-lockers/locker-backend/internal/admin"
	"github.com/tus-lockers/locker-backend/internal/auth"
	"github.com/tus-lockers/locker-backend/internal/authflow"
	"github.com/tus-lockers/locker-backend/internal/captcha"
	"github.com/tus-lockers/locker-backend/internal/circle"
	"github.com/tus-lockers/locker-backend/internal/config"
	"github.com/tus-lockers/locker-backend/internal/gform"
	"github.com/tus-lockers/locker-backend/internal/health"
	"github.com/tus-lockers/locker-backend/internal/locker"
	"github.com/tus-lockers/locker-backend/internal/mail"
	"github.com/tus-lockers/locker-backend/internal/metrics"
	"github.com/tus-lockers/locker-backend/internal/middleware"
	"github.com/tus-lockers/locker-backend/internal/store"
)

// Deps are the collaborators the services are built from.
type Deps struct {
	Config  *config.Config
	Store   store.Store
	Mail    mail.Dispatcher
	Captcha captcha.Verifier
	Form    gform.Notifier
}

func New(d Deps) http.Handler {
	cfg := d.Config

	flows := authflow.NewService(d.Store, d.Mail, d.Captcha, authflow.Config{
		AppURL:            cfg.AppURL,
		SameStudentEnable: cfg.SameStudentEnable,
		Now:               cfg.Now,
	})
	lockers := locker.NewService(d.Store, d.Mail, flows, cfg.Now)
	circles := circle.NewService(d.Store, d.Mail, flows, d.Form, cfg.Now)
	admins := admin.NewService(d.Store, lockers, cfg.ResetPasswordHash)

	issuer := auth.NewIssuer(cfg.TokenKey)
	authHandler := auth.NewHandler(d.Store.Admins(), issuer, cfg.Domain)
	adminHandler := admin.NewHandler(admins, circles)
	limiter := middleware.NewRateLimiter(cfg.TokenGenPerMinute)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.TrustedProxies(cfg.TrustedProxies))
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		health.SetupRoutes(r)
		r.Handle("/metrics", metrics.Handler())
		auth.SetupRoutes(r, authHandler)
		admin.SetupPublicRoutes(r, adminHandler)

		r.Route("/locker", func(r chi.Router) {
			authflow.SetupRoutes(r, authflow.NewHandler(flows, store.FlowLocker), limiter.Middleware)
			locker.SetupRoutes(r, locker.NewHandler(lockers))
		})
		r.Route("/circle", func(r chi.Router) {
			authflow.SetupRoutes(r, authflow.NewHandler(flows, store.FlowCircle), limiter.Middleware)
			circle.SetupRoutes(r, circle.NewHandler(circles))
		})

		r.Mount("/admin", admin.SetupRoutes(adminHandler,
			middleware.SessionMiddleware(auth.SessionInfo{Issuer: issuer}),
			middleware.AdminMiddleware(d.Store.Admins()),
		))
	})

	return r
}
