// Package config loads application configuration from environment
// variables into tagged structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// the default .env file is read once per process (missing files are
// fine), then env.Parse populates any struct annotated with `env` tags.
//
//	type WorkerConfig struct {
//	    PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"10s"`
//	    BatchSize    int           `env:"WORKER_BATCH_SIZE" envDefault:"10"`
//	}
//
//	var cfg WorkerConfig
//	config.MustLoad(&cfg)
package config
