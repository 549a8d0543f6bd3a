package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/courierd/courierd/pkg/config"
	"github.com/courierd/courierd/pkg/fanout"
	"github.com/courierd/courierd/pkg/job"
	"github.com/courierd/courierd/pkg/logger"
	"github.com/courierd/courierd/pkg/notify"
	"github.com/courierd/courierd/pkg/pg"
	"github.com/courierd/courierd/pkg/prefs"
	"github.com/courierd/courierd/pkg/redis"
	"github.com/courierd/courierd/pkg/token"
)

type appConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Addr string `env:"GATEWAY_ADDR" envDefault:":8080"`

	// APIKey guards the enqueue endpoint; internal services present it
	// in the X-Api-Key header.
	APIKey string `env:"GATEWAY_API_KEY,required"`

	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER"`

	ShutdownTimeout time.Duration `env:"GATEWAY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("gateway exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		appCfg   appConfig
		pgCfg    pg.Config
		redisCfg redis.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, "courierd-gateway"),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	bus, err := fanout.NewRedisBus(rdb, fanout.WithRedisBusLogger(log))
	if err != nil {
		return fmt.Errorf("create fanout bus: %w", err)
	}

	jobStore := job.NewPostgresStore(pool)

	hub, err := fanout.NewHub(jobStore, bus, fanout.WithHubLogger(log))
	if err != nil {
		return fmt.Errorf("create hub: %w", err)
	}

	verifier, err := token.NewVerifier(appCfg.JWTSecret, token.WithIssuer(appCfg.JWTIssuer))
	if err != nil {
		return fmt.Errorf("create token verifier: %w", err)
	}

	gateway, err := fanout.NewGateway(hub, verifier, fanout.WithGatewayLogger(log))
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	enqueuer, err := notify.NewEnqueuer(jobStore, prefs.NewPostgresStore(pool),
		notify.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create enqueuer: %w", err)
	}

	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", healthHandler(pg.Healthcheck(pool), redis.Healthcheck(rdb)))
	r.Handle("/ws/notifications", gateway)
	r.With(apiKeyAuth(appCfg.APIKey)).Post("/api/notifications", enqueueHandler(enqueuer, log))

	srv := &http.Server{
		Addr:              appCfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvDone := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "gateway listening", slog.String("addr", appCfg.Addr))
		srvDone <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvDone:
		return fmt.Errorf("http server: %w", err)
	case err := <-hubDone:
		if err != nil {
			return fmt.Errorf("fanout hub: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func apiKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Api-Key")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type enqueueRequest struct {
	RecipientID      int64           `json:"recipient_id"`
	Channel          string          `json:"channel"`
	MessageData      json.RawMessage `json:"message_data"`
	NotificationType string          `json:"notification_type"`
}

type enqueueResponse struct {
	JobID   *int64 `json:"job_id"`
	Skipped bool   `json:"skipped"`
}

func enqueueHandler(enqueuer *notify.Enqueuer, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		id, err := enqueuer.Enqueue(r.Context(), req.RecipientID,
			job.Channel(req.Channel), req.MessageData, req.NotificationType)
		if err != nil {
			switch {
			case errors.Is(err, job.ErrInvalidChannel),
				errors.Is(err, notify.ErrMessageDataEmpty),
				errors.Is(err, notify.ErrMessageDataInvalid):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				log.ErrorContext(r.Context(), "enqueue failed",
					logger.Error(err),
					logger.RecipientID(req.RecipientID))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(enqueueResponse{JobID: id, Skipped: id == nil})
	}
}
