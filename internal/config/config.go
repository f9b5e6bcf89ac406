package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Training struct {
		Algorithm string  `env:"TRAIN_ALGORITHM" envDefault:"bfgs"`
		Epochs    int     `env:"TRAIN_EPOCHS" envDefault:"500"`
		Show      int     `env:"TRAIN_SHOW" envDefault:"100"`
		Goal      float64 `env:"TRAIN_GOAL" envDefault:"0.01"`
		Strict    bool    `env:"TRAIN_STRICT" envDefault:"false"`
		Seed      uint64  `env:"TRAIN_SEED" envDefault:"1"`
	}
	Jobs struct {
		TTL             time.Duration `env:"JOB_TTL" envDefault:"1h"`
		CleanupInterval time.Duration `env:"JOB_CLEANUP_INTERVAL" envDefault:"10m"`
		MaxRunning      int           `env:"JOB_MAX_RUNNING" envDefault:"4"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if cfg.Training.Epochs <= 0 {
		return nil, fmt.Errorf("config: TRAIN_EPOCHS must be positive, got %d", cfg.Training.Epochs)
	}
	if cfg.Training.Show < 0 {
		return nil, fmt.Errorf("config: TRAIN_SHOW must not be negative, got %d", cfg.Training.Show)
	}
	if cfg.Jobs.MaxRunning <= 0 {
		cfg.Jobs.MaxRunning = 1
	}

	return cfg, nil
}
