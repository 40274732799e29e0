package statsui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/alphacmp/internal/model"
	"github.com/verte-zerg/alphacmp/internal/recorder"
	"github.com/verte-zerg/alphacmp/internal/trial"
)

func writeLog(t *testing.T, dir string) {
	t.Helper()
	rec := recorder.New(dir)
	tr := trial.Trial{LeftSymbol: 'K', RightSymbol: 'B', LeftSize: 200, RightSize: 140, Correct: trial.Left, Distance: 9, Difficulty: trial.Medium}
	for i, side := range []trial.Side{trial.Left, trial.Right} {
		resp := recorder.Response{Chosen: side, ResponseTime: 800 * time.Millisecond, Round: i + 1}
		require.NoError(t, rec.Record("21", tr, resp))
	}
}

func TestModelLoadsReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	writeLog(t, dir)

	m := NewModel(model.StatsConfig{Subject: "21", ResultsDir: dir, CurveWindow: 5})
	require.Empty(t, m.errMsg)
	rows := m.trials.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "K B", rows[1][1])
	assert.Equal(t, "no", rows[1][5])
	assert.Equal(t, "MEDIUM", rows[1][6])

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	for _, want := range []string{"Overview", "Trials", "Subject: 21", "50.0%"} {
		assert.Contains(t, view, want)
	}
}

func TestModelSwitchesTabs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	writeLog(t, dir)
	m := NewModel(model.StatsConfig{Subject: "21", ResultsDir: dir})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabTrials, m.activeTab)
	assert.True(t, m.trials.Focused())

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabOverview, m.activeTab, "tabs wrap around")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	assert.Equal(t, 5, m.cfg.CurveWindow)
}

func TestModelMissingLog(t *testing.T) {
	m := NewModel(model.StatsConfig{Subject: "none", ResultsDir: t.TempDir()})
	assert.Contains(t, m.errMsg, "results_none.csv")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Contains(t, m.View(), "Failed to load stats.")
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct{ in, next, prev int }{
		{0, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{20, 25, 15},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.next, nextCurveWindow(tc.in), "next(%d)", tc.in)
		assert.Equal(t, tc.prev, prevCurveWindow(tc.in), "prev(%d)", tc.in)
	}
}
