// Package recorder appends completed trials to per-subject CSV logs.
package recorder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/alphacmp/internal/trial"
)

// ErrInvalidSubject reports a subject id that cannot name a log directory.
var ErrInvalidSubject = errors.New("invalid subject id")

// TimestampLayout formats the Date/Time column.
const TimestampLayout = "2006-01-02T15:04:05.000"

// Header lists the log columns in order.
var Header = []string{
	"Subject ID",
	"Left Choice",
	"Right Choice",
	"Side Correct",
	"Side Picked",
	"Correct",
	"Difficulty",
	"Distance",
	"Left Choice Size",
	"Right Choice Size",
	"Which Size Correct",
	"Response Time",
	"Date/Time",
	"Consecutive Rounds",
}

// logFile is the subset of *os.File used to append a row.
type logFile interface {
	io.Writer
	Stat() (os.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Close() error
}

var openLog = func(path string) (logFile, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Response is the subject's answer to one trial.
type Response struct {
	Chosen       trial.Side
	ResponseTime time.Duration
	Round        int
}

// Recorder writes results to <root>/<subject>/results_<subject>.csv.
type Recorder struct {
	root  string
	table trial.Table
	now   func() time.Time
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithClock overrides the wall clock used for the Date/Time column.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithTable sets the difficulty table used to re-derive labels from distance.
func WithTable(table trial.Table) Option {
	return func(r *Recorder) {
		r.table = table
	}
}

// New returns a Recorder rooted at root.
func New(root string, opts ...Option) *Recorder {
	r := &Recorder{
		root:  root,
		table: trial.DefaultTable(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the log file for subjectID.
func (r *Recorder) Path(subjectID string) string {
	return filepath.Join(r.root, subjectID, "results_"+subjectID+".csv")
}

// Record appends one row for t. The header is written first when the log is
// new or empty. A failed write leaves the log as it was before the call.
func (r *Recorder) Record(subjectID string, t trial.Trial, resp Response) error {
	if err := ValidateSubject(subjectID); err != nil {
		return err
	}
	path := r.Path(subjectID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	file, err := openLog(path)
	if err != nil {
		return fmt.Errorf("failed to open results log: %w", err)
	}
	// The row is synced before Close, so a close error loses nothing.
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat results log: %w", err)
	}
	size := info.Size()

	var rows [][]string
	if size == 0 {
		rows = append(rows, Header)
	}
	rows = append(rows, r.Row(subjectID, t, resp))
	payload, err := encodeRows(rows)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	if _, err := file.Write(payload); err != nil {
		return rollback(file, size, fmt.Errorf("failed to write results log: %w", err))
	}
	if err := file.Sync(); err != nil {
		return rollback(file, size, fmt.Errorf("failed to sync results log: %w", err))
	}
	return nil
}

// Row builds the CSV fields for one trial.
func (r *Recorder) Row(subjectID string, t trial.Trial, resp Response) []string {
	correct := resp.Chosen == t.Correct
	picked := t.Correct
	if !correct {
		picked = t.Correct.Opposite()
	}
	distance := t.Distance
	if distance < 0 {
		distance = -distance
	}
	difficulty := ""
	if label, ok := r.table.Classify(distance); ok {
		difficulty = label.String()
	}
	sizeCorrect := "Smaller"
	if t.BiggerIsCorrect() {
		sizeCorrect = "Bigger"
	}

	return []string{
		subjectID,
		string(t.LeftSymbol),
		string(t.RightSymbol),
		t.Correct.String(),
		picked.String(),
		yesNo(correct),
		difficulty,
		strconv.Itoa(distance),
		strconv.Itoa(t.LeftSize),
		strconv.Itoa(t.RightSize),
		sizeCorrect,
		FormatSeconds(resp.ResponseTime),
		r.now().Format(TimestampLayout),
		strconv.Itoa(resp.Round),
	}
}

// FormatSeconds renders d as decimal seconds.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Nanoseconds())/1e9, 'f', -1, 64)
}

// ValidateSubject checks that id is usable as a single path component and
// as one unquoted CSV field.
func ValidateSubject(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSubject)
	}
	if trimmed != id || id == "." || id == ".." || strings.ContainsAny(id, `/\,"`) {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, id)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q", ErrInvalidSubject, id)
		}
	}
	return nil
}

// rollback truncates the log to size so a failed append leaves no partial row.
func rollback(file logFile, size int64, cause error) error {
	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("%w (rollback failed: %v)", cause, err)
	}
	return cause
}

func encodeRows(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
