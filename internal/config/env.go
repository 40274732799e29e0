package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds overrides read from ALPHACMP_* environment variables.
// Unset variables leave their field nil.
type EnvConfig struct {
	Subject    *string        `env:"ALPHACMP_SUBJECT"`
	ResultsDir *string        `env:"ALPHACMP_RESULTS_DIR"`
	Rounds     *int           `env:"ALPHACMP_ROUNDS"`
	InterTrial *time.Duration `env:"ALPHACMP_INTER_TRIAL"`
	GetReady   *time.Duration `env:"ALPHACMP_GET_READY"`
	Seed       *int64         `env:"ALPHACMP_SEED"`
	MaxStreak  *int           `env:"ALPHACMP_MAX_STREAK"`
}

// LoadEnv parses environment overrides.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Overrides is the merged file and environment layer. Nil fields fall back
// to flag defaults.
type Overrides struct {
	Subject    *string
	ResultsDir *string
	Rounds     *int
	InterTrial *time.Duration
	GetReady   *time.Duration
	Seed       *int64
	MaxStreak  *int
}

// Merge layers environment values over file values.
func Merge(file FileConfig, envCfg EnvConfig) (Overrides, error) {
	interTrial, err := parseDuration("inter-trial", file.Session.InterTrial)
	if err != nil {
		return Overrides{}, err
	}
	getReady, err := parseDuration("get-ready", file.Session.GetReady)
	if err != nil {
		return Overrides{}, err
	}
	return Overrides{
		Subject:    firstSet(envCfg.Subject, file.Session.Subject),
		ResultsDir: firstSet(envCfg.ResultsDir, file.Session.ResultsDir),
		Rounds:     firstSet(envCfg.Rounds, file.Session.Rounds),
		InterTrial: firstSet(envCfg.InterTrial, interTrial),
		GetReady:   firstSet(envCfg.GetReady, getReady),
		Seed:       firstSet(envCfg.Seed, file.Session.Seed),
		MaxStreak:  firstSet(envCfg.MaxStreak, file.Trials.MaxStreak),
	}, nil
}

func parseDuration(key string, value *string) (*time.Duration, error) {
	if value == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, *value, err)
	}
	return &d, nil
}

func firstSet[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
