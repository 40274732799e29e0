// Package main provides the CLI entrypoint for alphacmp.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/alphacmp/internal/config"
	"github.com/verte-zerg/alphacmp/internal/model"
	"github.com/verte-zerg/alphacmp/internal/recorder"
	"github.com/verte-zerg/alphacmp/internal/session"
	"github.com/verte-zerg/alphacmp/internal/stats"
	"github.com/verte-zerg/alphacmp/internal/statsui"
	"github.com/verte-zerg/alphacmp/internal/trial"
	"github.com/verte-zerg/alphacmp/internal/tui"
)

const (
	defaultRounds      = 40
	defaultInterTrial  = 1250 * time.Millisecond
	defaultGetReady    = 2 * time.Second
	defaultCurveWindow = 10
)

var (
	sessionSubject    string
	sessionResultsDir string
	sessionRounds     int
	sessionInterTrial time.Duration
	sessionGetReady   time.Duration
	sessionSeed       int64
	sessionMaxStreak  int
	sessionDebug      bool

	statsSubject     string
	statsResultsDir  string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "alphacmp",
		Short:         "Adaptive letter comparison task",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runSessionCmd,
	}

	rootCmd.Flags().StringVar(&sessionSubject, "subject", "", "subject id (asked for when empty)")
	rootCmd.Flags().StringVar(&sessionResultsDir, "results-dir", config.DefaultResultsDir(), "directory holding per-subject result logs")
	rootCmd.Flags().IntVar(&sessionRounds, "rounds", defaultRounds, "trials per session (0 = unlimited)")
	rootCmd.Flags().DurationVar(&sessionInterTrial, "inter-trial", defaultInterTrial, "delay between an answer and the next trial")
	rootCmd.Flags().DurationVar(&sessionGetReady, "get-ready", defaultGetReady, "delay before the first trial")
	rootCmd.Flags().Int64Var(&sessionSeed, "seed", 0, "random seed (0 = time based)")
	rootCmd.Flags().IntVar(&sessionMaxStreak, "max-streak", trial.DefaultMaxStreak, "longest run of the same correct side or size polarity")
	rootCmd.Flags().BoolVar(&sessionDebug, "debug", false, "log every trial")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func loadOverrides() (config.Overrides, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Overrides{}, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv()
	if err != nil {
		return config.Overrides{}, fmt.Errorf("failed to load config: %w", err)
	}
	return config.Merge(fileCfg, envCfg)
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	applyConfig(cmd, "subject", &sessionSubject, overrides.Subject)
	applyConfig(cmd, "results-dir", &sessionResultsDir, overrides.ResultsDir)
	applyConfig(cmd, "rounds", &sessionRounds, overrides.Rounds)
	applyConfig(cmd, "inter-trial", &sessionInterTrial, overrides.InterTrial)
	applyConfig(cmd, "get-ready", &sessionGetReady, overrides.GetReady)
	applyConfig(cmd, "seed", &sessionSeed, overrides.Seed)
	applyConfig(cmd, "max-streak", &sessionMaxStreak, overrides.MaxStreak)

	cfg := model.Config{
		Subject:    strings.TrimSpace(sessionSubject),
		ResultsDir: sessionResultsDir,
		Rounds:     sessionRounds,
		InterTrial: sessionInterTrial,
		GetReady:   sessionGetReady,
		Seed:       sessionSeed,
		MaxStreak:  sessionMaxStreak,
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, closeLog := openLogger(sessionDebug)
	defer closeLog()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen, err := trial.NewGenerator(trial.Options{
		Rand:      rand.New(rand.NewSource(seed)),
		MaxStreak: cfg.MaxStreak,
	})
	if err != nil {
		return err
	}
	rec := recorder.New(cfg.ResultsDir, recorder.WithTable(gen.Table()))
	start := func(subjectID string) (*session.Session, error) {
		return session.New(subjectID, gen, rec, session.Options{Rounds: cfg.Rounds, Logger: logger})
	}
	logger.Debug("generator ready", "seed", seed, "results_dir", cfg.ResultsDir)

	m, err := tui.NewModel(cfg, start, logger)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if sess := m.Session(); sess != nil && sess.Rounds() > 0 {
		logErrf("Subject %s: %d of %d correct, log %s\n", sess.SubjectID(), sess.Points(), sess.Rounds(), rec.Path(sess.SubjectID()))
	}
	return nil
}

// openLogger writes structured logs to the state directory so they do not
// interleave with the full-screen UI.
func openLogger(debug bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var out io.Writer = io.Discard
	closeLog := func() {}
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logErrf("failed to create log directory: %v\n", err)
	} else if file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
		logErrf("failed to open log file: %v\n", err)
	} else {
		out = file
		closeLog = func() {
			if cerr := file.Close(); cerr != nil {
				logErrf("failed to close log file: %v\n", cerr)
			}
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closeLog
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a subject's results",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSubject, "subject", "", "subject id")
	cmd.Flags().StringVar(&statsResultsDir, "results-dir", config.DefaultResultsDir(), "directory holding per-subject result logs")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to the last N trials")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	applyConfig(cmd, "subject", &statsSubject, overrides.Subject)
	applyConfig(cmd, "results-dir", &statsResultsDir, overrides.ResultsDir)

	cfg := model.StatsConfig{
		Subject:     strings.TrimSpace(statsSubject),
		ResultsDir:  statsResultsDir,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsPlain || !stats.IsTerminal(out) {
		report, err := stats.BuildReport(cfg)
		if err != nil {
			return err
		}
		if err := stats.RenderReport(out, report, stats.TerminalWidth(out), stats.ShouldUseColor(out)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	program := tea.NewProgram(statsui.NewModel(cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

// applyConfig copies a file or environment value into target unless the
// flag was set explicitly.
func applyConfig[T any](cmd *cobra.Command, name string, target, value *T) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# alphacmp configuration
# Uncomment a value to enable it. ALPHACMP_* environment variables override
# these values and CLI flags override both.

[session]
# subject = "1"             # Subject id (asked for when empty)
# results-dir = %q     # Directory holding per-subject result logs
# rounds = %d                # Trials per session (0 = unlimited)
# inter-trial = %q       # Delay between an answer and the next trial
# get-ready = %q            # Delay before the first trial
# seed = 0                   # Random seed (0 = time based)

[trials]
# max-streak = %d             # Longest run of the same correct side or size polarity
`,
		config.DefaultResultsDir(),
		defaultRounds,
		defaultInterTrial.String(),
		defaultGetReady.String(),
		trial.DefaultMaxStreak,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
