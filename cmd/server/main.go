package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/argus-triage/argus-go/internal/auth"
	"github.com/argus-triage/argus-go/internal/classifier"
	"github.com/argus-triage/argus-go/internal/config"
	"github.com/argus-triage/argus-go/internal/db"
	"github.com/argus-triage/argus-go/internal/handlers"
	"github.com/argus-triage/argus-go/internal/ratelimit"
	"github.com/argus-triage/argus-go/internal/rules"
	"github.com/argus-triage/argus-go/internal/server"
	"github.com/argus-triage/argus-go/internal/store"
	"github.com/argus-triage/argus-go/internal/success"
	"github.com/argus-triage/argus-go/internal/synth"
	argustls "github.com/argus-triage/argus-go/internal/tls"
	"github.com/argus-triage/argus-go/internal/triage"
	"github.com/argus-triage/argus-go/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := server.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store: PostgreSQL when configured, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer database.Close()
		st = database
	} else {
		logger.Info("no DATABASE_URL, using in-memory store")
		st = store.NewMemory()
	}

	// Classifier, optionally restored from disk.
	clf := classifier.New(logger)
	if cfg.ModelPath != "" {
		if err := clf.Load(cfg.ModelPath); err != nil {
			logger.Warn("no saved model, starting untrained", "err", err, "path", cfg.ModelPath)
		} else {
			logger.Info("model restored", "path", cfg.ModelPath)
		}
	}

	deep := triage.NewDeepAnalyzer()
	if deep == nil {
		logger.Info("deep analysis disabled, no ANTHROPIC_API_KEY")
	}
	pipeline := triage.NewPipeline(rules.NewEngine(), clf, success.NewArbitrator(), deep, logger)

	// Seed synthetic traffic when starting empty so the dashboard and the
	// model have something to work with.
	if err := seed(ctx, cfg, st, pipeline, clf, logger); err != nil {
		logger.Error("startup seeding failed", "err", err)
		os.Exit(1)
	}

	wsManager := ws.NewManager(st, logger)
	limiter := ratelimit.New()

	authCfg := auth.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		BaseURL:      cfg.BaseURL,
	}
	sessions := auth.NewSessionManager(cfg.Production)
	oauth := auth.NewHandler(authCfg, sessions, logger)
	if !authCfg.Enabled() {
		logger.Info("github oauth not configured, api is open")
	}

	api := handlers.NewAPI(st, pipeline, clf, wsManager, logger, cfg.ModelPath)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	// Auth routes.
	r.Group(func(g chi.Router) {
		g.Use(limiter.Middleware("auth"))
		g.Get("/auth/github", oauth.BeginLogin)
		g.Get("/auth/github/callback", oauth.Callback)
		g.Get("/auth/me", oauth.Me)
		g.Post("/auth/logout", oauth.Logout)
	})

	// One-shot classification, rate limited, no auth.
	r.With(limiter.Middleware("classify")).Post("/v1/classify", api.Classify)

	// Live stream.
	r.Get("/ws", wsManager.HandleWS)

	// Dashboard API.
	r.Route("/api", func(g chi.Router) {
		g.Use(auth.RequireAuth(authCfg, sessions))
		g.Use(limiter.Middleware("api"))

		g.Get("/events", api.ListEvents)
		g.Get("/events/{event_id}", api.GetEvent)
		g.Get("/stats", api.Summary)
		g.Get("/stats/timeline", api.Timeline)
		g.Get("/stats/top-ips", api.TopIPs)
		g.Get("/explain/{event_id}", api.Explain)
		g.Get("/storyline/{ip}", api.Storyline)

		g.With(limiter.Middleware("upload")).Post("/upload", api.Upload)
		g.With(limiter.Middleware("train")).Post("/train", api.Train)
	})

	go server.RunWithRecovery(ctx, logger, "ws-broadcaster", wsManager.Run)
	go server.RunWithRecovery(ctx, logger, "session-cleanup", sessions.CleanupLoop)
	go oauth.StateCleanupLoop(ctx)

	if cfg.TLSDomain != "" {
		cm := argustls.NewCertManager(cfg.TLSDomain, cfg.Production, logger)
		if err := cm.ListenAndServe(ctx, r); err != nil {
			logger.Error("tls server failed", "err", err)
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket needs unlimited write time
		IdleTimeout:  60 * time.Second,
	}
	if err := server.Serve(ctx, logger, srv, 10*time.Second); err != nil {
		logger.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

// seed fills an empty store with synthetic labeled traffic and trains the
// model on it when no saved model was loaded.
func seed(ctx context.Context, cfg config.Config, st store.Store, pipeline *triage.Pipeline, clf *classifier.Classifier, logger *slog.Logger) error {
	if cfg.SeedEvents <= 0 {
		return nil
	}
	n, err := st.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	gen := synth.NewGenerator(time.Now().UnixNano())
	events := gen.Generate(cfg.SeedEvents, cfg.SeedRatio)

	if !clf.IsTrained() {
		if err := clf.Train(events); err != nil {
			return err
		}
		if cfg.ModelPath != "" {
			if err := clf.Save(cfg.ModelPath); err != nil {
				logger.Warn("model save failed", "err", err, "path", cfg.ModelPath)
			}
		}
	}

	classified, err := pipeline.ClassifyBatch(ctx, events)
	if err != nil {
		return err
	}
	if err := st.Insert(ctx, classified); err != nil {
		return err
	}
	logger.Info("seeded synthetic events", "count", len(classified))
	return nil
}
