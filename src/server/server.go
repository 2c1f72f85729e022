package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/handler"
	"tradejournal/src/ledger"
	"tradejournal/src/repository"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Ledger     *ledger.Ledger
	Users      *repository.GormUserRepository
	Exceptions *repository.ExceptionRepository
	Sessions   *auth.Sessions
	Config     *Config
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Get("/login", handler.LoginHandler(d.Users, d.Sessions, d.Exceptions))
	r.Post("/login", handler.LoginHandler(d.Users, d.Sessions, d.Exceptions))
	r.Get("/register", handler.RegisterHandler(d.Users, d.Exceptions))
	r.Post("/register", handler.RegisterHandler(d.Users, d.Exceptions))
	r.Get("/logout", handler.LogoutHandler(d.Sessions))

	// HTML pages
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(d.Sessions, d.Users, auth.RedirectToLogin))

		r.Get("/", handler.JournalHandler(d.Ledger, d.Exceptions))
		r.Post("/", handler.JournalHandler(d.Ledger, d.Exceptions))
		r.Get("/jurnal", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
		})
		r.Get("/edit/{id}", handler.EditTradeHandler(d.Ledger, d.Exceptions))
		r.Post("/edit/{id}", handler.EditTradeHandler(d.Ledger, d.Exceptions))
		r.Get("/delete/{id}", handler.DeleteTradeHandler(d.Ledger, d.Exceptions))
		r.Get("/set-equity", handler.SetEquityHandler(d.Ledger, d.Exceptions))
		r.Post("/set-equity", handler.SetEquityHandler(d.Ledger, d.Exceptions))
		r.Get("/export", handler.ExportHandler(d.Ledger, d.Exceptions))
		r.Get("/dashboard", handler.DashboardHandler(d.Ledger, d.Exceptions))
		r.Post("/dashboard", handler.DashboardHandler(d.Ledger, d.Exceptions))
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware(d.Config))
		r.Use(auth.RequireUser(d.Sessions, d.Users, auth.Unauthorized))

		r.Get("/me", handler.CurrentUserHandler())
		r.Post("/account/password", handler.ChangePasswordHandler(d.Users, d.Exceptions))
		r.Get("/trades", handler.TradesAPIHandler(d.Ledger, d.Exceptions))
		r.Get("/stats", handler.StatsAPIHandler(d.Ledger, d.Exceptions))
	})

	return r
}

func corsMiddleware(cfg *Config) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}
	// session cookies only travel to explicitly trusted origins
	if cfg != nil && len(cfg.CORSAllowedOrigins) > 0 {
		opts.AllowedOrigins = cfg.CORSAllowedOrigins
		opts.AllowCredentials = true
	}
	return cors.New(opts).Handler
}

// StartServer serves h until SIGINT or SIGTERM, then shuts down gracefully.
func StartServer(cfg *Config, h http.Handler) {
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
