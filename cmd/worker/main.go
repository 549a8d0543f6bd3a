package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courierd/courierd/pkg/config"
	"github.com/courierd/courierd/pkg/delivery"
	"github.com/courierd/courierd/pkg/email"
	"github.com/courierd/courierd/pkg/fanout"
	"github.com/courierd/courierd/pkg/job"
	"github.com/courierd/courierd/pkg/logger"
	"github.com/courierd/courierd/pkg/pg"
	"github.com/courierd/courierd/pkg/redis"
	"github.com/courierd/courierd/pkg/worker"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

type workerConfig struct {
	PollInterval  time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"10s"`
	ErrorInterval time.Duration `env:"WORKER_ERROR_INTERVAL" envDefault:"30s"`
	RetryBackoff  time.Duration `env:"WORKER_RETRY_BACKOFF" envDefault:"5m"`
	BatchSize     int           `env:"WORKER_BATCH_SIZE" envDefault:"10"`

	// EmailLookupQuery resolves a recipient id to an email address in
	// the application's own schema.
	EmailLookupQuery string `env:"WORKER_EMAIL_LOOKUP_QUERY" envDefault:"SELECT email FROM users WHERE id = $1"`
}

func main() {
	runOnce := flag.Bool("run-once", false, "process a single batch and exit")
	flag.Parse()

	if err := run(*runOnce); err != nil {
		slog.Error("worker exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(runOnce bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		appCfg    appConfig
		workerCfg workerConfig
		pgCfg     pg.Config
		redisCfg  redis.Config
		emailCfg  email.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&workerCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&emailCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, "courierd-worker"),
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

	sender, err := buildSender(emailCfg, log)
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}

	emailHandler, err := delivery.NewEmailHandler(sender, &pgContactResolver{
		pool:  pool,
		query: workerCfg.EmailLookupQuery,
	})
	if err != nil {
		return fmt.Errorf("create email handler: %w", err)
	}

	inAppHandler, err := delivery.NewInAppHandler(bus)
	if err != nil {
		return fmt.Errorf("create in-app handler: %w", err)
	}

	registry := delivery.NewRegistry().
		Register(job.ChannelEmail, emailHandler).
		Register(job.ChannelInApp, inAppHandler)

	w, err := worker.New(job.NewPostgresStore(pool), registry,
		worker.WithLogger(log),
		worker.WithBatchSize(workerCfg.BatchSize),
		worker.WithPollInterval(workerCfg.PollInterval),
		worker.WithErrorRetryInterval(workerCfg.ErrorInterval),
		worker.WithRetryBackoff(workerCfg.RetryBackoff))
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	if runOnce {
		n, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "single batch processed", slog.Int("jobs", n))
		return nil
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildSender picks Postmark when a server token is configured and the
// file-based dev sender otherwise.
func buildSender(cfg email.Config, log *slog.Logger) (email.Sender, error) {
	if cfg.PostmarkServerToken != "" {
		log.Info("using postmark email transport")
		return email.NewPostmarkClient(cfg)
	}
	log.Warn("no postmark token set, writing emails to disk",
		slog.String("dir", cfg.DevOutputDir))
	return email.NewDevSender(cfg.DevOutputDir), nil
}

// pgContactResolver looks up recipient email addresses with a
// deployment-supplied query against the application schema.
type pgContactResolver struct {
	pool  *pgxpool.Pool
	query string
}

func (r *pgContactResolver) EmailAddress(ctx context.Context, recipientID int64) (string, error) {
	var addr string
	if err := r.pool.QueryRow(ctx, r.query, recipientID).Scan(&addr); err != nil {
		if pg.IsNotFoundError(err) {
			return "", fmt.Errorf("recipient %d not found", recipientID)
		}
		return "", fmt.Errorf("lookup recipient %d: %w", recipientID, err)
	}
	return addr, nil
}
