// Package model defines shared data structures.
package model

import "time"

// Config defines session settings.
type Config struct {
	Subject    string        `flag:"subject"`
	ResultsDir string        `flag:"results-dir" validate:"required"`
	Rounds     int           `flag:"rounds" validate:"gte=0"`
	InterTrial time.Duration `flag:"inter-trial" validate:"gte=0,lte=1m"`
	GetReady   time.Duration `flag:"get-ready" validate:"gte=0,lte=1m"`
	Seed       int64         `flag:"seed"`
	MaxStreak  int           `flag:"max-streak" validate:"gte=1,lte=100"`
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Subject     string `flag:"subject" validate:"required"`
	ResultsDir  string `flag:"results-dir" validate:"required"`
	Last        int    `flag:"last" validate:"gte=0"`
	CurveWindow int    `flag:"curve-window" validate:"gte=0"`
}
