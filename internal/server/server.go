// Package server is the composition root: it wires the database, services,
// handlers, and middleware into a chi router and runs the HTTP server with
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ametelin/reviewhub/internal/auth"
	"github.com/ametelin/reviewhub/internal/handler"
	"github.com/ametelin/reviewhub/internal/mail"
	"github.com/ametelin/reviewhub/internal/middleware"
	sqliteRepo "github.com/ametelin/reviewhub/internal/repository/sqlite"
	"github.com/ametelin/reviewhub/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	Mail      mail.Config
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain:
// repositories → services → handlers → routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	codes := auth.NewCodeService()

	// without an SMTP host, confirmation codes go to the log (dev mode)
	var sender mail.Sender
	if s.config.Mail.Host != "" {
		sender, err = mail.NewSMTPSender(s.config.Mail)
		if err != nil {
			return err
		}
	} else {
		s.logger.Warn("no SMTP host configured, confirmation codes will be logged")
		sender = mail.NewLogSender(s.logger)
	}

	authService := service.NewAuthService(s.db, tokens, codes, sender, s.logger)
	userService := service.NewUserService(s.db, s.logger)
	taxonomyService := service.NewTaxonomyService(s.db, s.db, s.logger)
	titleService := service.NewTitleService(s.db, s.db, s.db, s.logger)
	reviewService := service.NewReviewService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	taxonomyHandler := handler.NewTaxonomyHandler(taxonomyService, s.logger)
	titleHandler := handler.NewTitleHandler(titleService, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/token", authHandler.HandleToken)

		// every other route sees the optional bearer identity; the
		// handlers decide what each method requires
		r.Group(func(r chi.Router) {
			r.Use(auth.Identify(tokens, s.db))

			r.Get("/users", userHandler.HandleList)
			r.Post("/users", userHandler.HandleCreate)
			r.Get("/users/me", userHandler.HandleGetSelf)
			r.Patch("/users/me", userHandler.HandleUpdateSelf)
			r.Get("/users/{username}", userHandler.HandleGet)
			r.Patch("/users/{username}", userHandler.HandleUpdate)
			r.Delete("/users/{username}", userHandler.HandleDelete)

			r.Get("/categories", taxonomyHandler.HandleListCategories)
			r.Post("/categories", taxonomyHandler.HandleCreateCategory)
			r.Delete("/categories/{slug}", taxonomyHandler.HandleDeleteCategory)

			r.Get("/genres", taxonomyHandler.HandleListGenres)
			r.Post("/genres", taxonomyHandler.HandleCreateGenre)
			r.Delete("/genres/{slug}", taxonomyHandler.HandleDeleteGenre)

			r.Get("/titles", titleHandler.HandleList)
			r.Post("/titles", titleHandler.HandleCreate)
			r.Get("/titles/{id}", titleHandler.HandleGet)
			r.Patch("/titles/{id}", titleHandler.HandleUpdate)
			r.Delete("/titles/{id}", titleHandler.HandleDelete)

			r.Route("/titles/{title_id}/reviews", func(r chi.Router) {
				r.Get("/", reviewHandler.HandleListReviews)
				r.Post("/", reviewHandler.HandleCreateReview)
				r.Get("/{review_id}", reviewHandler.HandleGetReview)
				r.Patch("/{review_id}", reviewHandler.HandleUpdateReview)
				r.Delete("/{review_id}", reviewHandler.HandleDeleteReview)

				r.Route("/{review_id}/comments", func(r chi.Router) {
					r.Get("/", reviewHandler.HandleListComments)
					r.Post("/", reviewHandler.HandleCreateComment)
					r.Get("/{comment_id}", reviewHandler.HandleGetComment)
					r.Patch("/{comment_id}", reviewHandler.HandleUpdateComment)
					r.Delete("/{comment_id}", reviewHandler.HandleDeleteComment)
				})
			})
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
