package recorder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/alphacmp/internal/trial"
)

const headerLine = "Subject ID,Left Choice,Right Choice,Side Correct,Side Picked,Correct,Difficulty,Distance,Left Choice Size,Right Choice Size,Which Size Correct,Response Time,Date/Time,Consecutive Rounds"

var fixedNow = time.Date(2015, 6, 25, 10, 15, 30, 123000000, time.Local)

func sampleTrial() trial.Trial {
	return trial.Trial{
		LeftSymbol:  'D',
		RightSymbol: 'I',
		LeftSize:    128,
		RightSize:   150,
		Correct:     trial.Right,
		Distance:    5,
		Difficulty:  trial.Hard,
	}
}

func newTestRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "results")
	return New(root, WithClock(func() time.Time { return fixedNow })), root
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"), "log must end with a newline")
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRecordCreatesLogWithHeader(t *testing.T) {
	rec, root := newTestRecorder(t)

	err := rec.Record("7", sampleTrial(), Response{Chosen: trial.Right, ResponseTime: 1500 * time.Millisecond, Round: 1})
	require.NoError(t, err)

	path := filepath.Join(root, "7", "results_7.csv")
	require.Equal(t, path, rec.Path("7"))
	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, headerLine, lines[0])
	assert.Equal(t, "7,D,I,right,right,yes,HARD,5,128,150,Bigger,1.5,2015-06-25T10:15:30.123,1", lines[1])
}

func TestRecordAppendsWithoutRepeatingHeader(t *testing.T) {
	rec, _ := newTestRecorder(t)
	tr := sampleTrial()

	require.NoError(t, rec.Record("s1", tr, Response{Chosen: trial.Right, ResponseTime: time.Second, Round: 1}))
	require.NoError(t, rec.Record("s1", tr, Response{Chosen: trial.Left, ResponseTime: 250 * time.Millisecond, Round: 2}))

	lines := readLines(t, rec.Path("s1"))
	require.Len(t, lines, 3)
	assert.Equal(t, headerLine, lines[0])
	assert.Equal(t, "s1,D,I,right,left,no,HARD,5,128,150,Bigger,0.25,2015-06-25T10:15:30.123,2", lines[2])
}

func TestRecordWritesHeaderIntoEmptyLog(t *testing.T) {
	rec, _ := newTestRecorder(t)
	path := rec.Path("s2")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, rec.Record("s2", sampleTrial(), Response{Chosen: trial.Right, Round: 1}))
	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, headerLine, lines[0])
}

func TestRowRederivesDifficultyFromDistance(t *testing.T) {
	rec, _ := newTestRecorder(t)
	tr := sampleTrial()
	tr.Distance = 15
	tr.Difficulty = trial.Hard
	tr.LeftSize, tr.RightSize = 200, 80

	row := rec.Row("x", tr, Response{Chosen: trial.Right, Round: 3})
	assert.Equal(t, "EASY", row[6])
	assert.Equal(t, "Smaller", row[10])

	tr.Distance = 1
	row = rec.Row("x", tr, Response{Chosen: trial.Right, Round: 3})
	assert.Equal(t, "", row[6])
}

func TestRecordRejectsInvalidSubject(t *testing.T) {
	rec, root := newTestRecorder(t)
	for _, id := range []string{"", " ", "..", "a/b", `a\b`, " padded", "a\nb", "a\tb", "a,b", `a"b`, "a\x7fb"} {
		err := rec.Record(id, sampleTrial(), Response{})
		require.ErrorIs(t, err, ErrInvalidSubject, "id %q", id)
	}
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err), "no directory should be created")
}

func TestRecordReportsFilesystemFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "results")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	rec := New(blocker)
	err := rec.Record("s1", sampleTrial(), Response{Chosen: trial.Left, Round: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create results directory")
}

// flakyFile writes only half of each payload and then fails, or fails Sync.
type flakyFile struct {
	*os.File
	failSync bool
}

func (f *flakyFile) Write(p []byte) (int, error) {
	if f.failSync {
		return f.File.Write(p)
	}
	n, err := f.File.Write(p[:len(p)/2])
	if err != nil {
		return n, err
	}
	return n, errors.New("device full")
}

func (f *flakyFile) Sync() error {
	if f.failSync {
		return errors.New("sync failed")
	}
	return f.File.Sync()
}

func useFlakyLog(t *testing.T, failSync bool) {
	t.Helper()
	prev := openLog
	openLog = func(path string) (logFile, error) {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		return &flakyFile{File: file, failSync: failSync}, nil
	}
	t.Cleanup(func() { openLog = prev })
}

func TestRecordFailureLeavesNewLogEmpty(t *testing.T) {
	rec, _ := newTestRecorder(t)
	path := rec.Path("s4")
	useFlakyLog(t, false)

	err := rec.Record("s4", sampleTrial(), Response{Chosen: trial.Right, Round: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write results log")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "no partial header may survive")
}

func TestRecordFailureKeepsExistingLog(t *testing.T) {
	for name, failSync := range map[string]bool{"write": false, "sync": true} {
		t.Run(name, func(t *testing.T) {
			rec, _ := newTestRecorder(t)
			path := rec.Path("s5")
			require.NoError(t, rec.Record("s5", sampleTrial(), Response{Chosen: trial.Right, Round: 1}))
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			useFlakyLog(t, failSync)
			err = rec.Record("s5", sampleTrial(), Response{Chosen: trial.Left, Round: 2})
			require.Error(t, err)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestRecordAfterFailureWritesHeader(t *testing.T) {
	rec, _ := newTestRecorder(t)
	path := rec.Path("s6")
	prev := openLog
	useFlakyLog(t, false)
	require.Error(t, rec.Record("s6", sampleTrial(), Response{Chosen: trial.Right, Round: 1}))

	openLog = prev
	require.NoError(t, rec.Record("s6", sampleTrial(), Response{Chosen: trial.Right, Round: 1}))
	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, headerLine, lines[0])
}

func TestReadLogParsesRecordedRows(t *testing.T) {
	rec, _ := newTestRecorder(t)
	tr := sampleTrial()
	require.NoError(t, rec.Record("s3", tr, Response{Chosen: trial.Right, ResponseTime: 1234 * time.Millisecond, Round: 1}))
	require.NoError(t, rec.Record("s3", tr, Response{Chosen: trial.Left, ResponseTime: 800 * time.Millisecond, Round: 2}))

	entries, err := ReadLog(rec.Path("s3"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "s3", first.SubjectID)
	assert.Equal(t, "D", first.Left)
	assert.Equal(t, trial.Right, first.Correct)
	assert.True(t, first.IsCorrect)
	assert.True(t, first.BiggerCorrect)
	assert.Equal(t, "HARD", first.Difficulty)
	assert.Equal(t, 1234*time.Millisecond, first.ResponseTime)
	assert.True(t, fixedNow.Equal(first.RecordedAt))

	second := entries[1]
	assert.False(t, second.IsCorrect)
	assert.Equal(t, trial.Left, second.Picked)
	assert.Equal(t, 2, second.Round)
}

func TestParseLogRejectsForeignHeader(t *testing.T) {
	_, err := parseLog(strings.NewReader(strings.Replace(headerLine, "Distance", "Gap", 1) + "\n"))
	require.Error(t, err)

	entries, err := parseLog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "1.5", FormatSeconds(1500*time.Millisecond))
	assert.Equal(t, "0.000001", FormatSeconds(time.Microsecond))
	assert.Equal(t, "2", FormatSeconds(2*time.Second))
}
