// Package stats summarizes recorded trial logs.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/alphacmp/internal/recorder"
)

const sparkChars = " .:-=+*#%@"

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))

// Group aggregates answers sharing one label.
type Group struct {
	Label    string
	Trials   int
	Correct  int
	TotalRTs time.Duration
}

func (g *Group) add(e recorder.Entry) {
	g.Trials++
	if e.IsCorrect {
		g.Correct++
	}
	g.TotalRTs += e.ResponseTime
}

// Accuracy returns the fraction of correct answers.
func (g Group) Accuracy() float64 {
	if g.Trials == 0 {
		return 0
	}
	return float64(g.Correct) / float64(g.Trials)
}

// MeanRT returns the mean response time.
func (g Group) MeanRT() time.Duration {
	if g.Trials == 0 {
		return 0
	}
	return g.TotalRTs / time.Duration(g.Trials)
}

// AccuracyCurve returns the percentage of correct answers over the last
// window entries at each point. A window of 1 or less yields 0 or 100 per
// answer; the first points average over the answers seen so far.
func AccuracyCurve(entries []recorder.Entry, window int) []float64 {
	window = max(window, 1)
	out := make([]float64, len(entries))
	hits := 0
	for i, e := range entries {
		if e.IsCorrect {
			hits++
		}
		if i >= window && entries[i-window].IsCorrect {
			hits--
		}
		out[i] = 100 * float64(hits) / float64(min(i+1, window))
	}
	return out
}

// Resample averages values into at most width buckets.
func Resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// PercentSparkline renders percentages on a fixed 0-100 scale, so a flat
// 100% run draws at the top rather than the middle.
func PercentSparkline(values []float64) string {
	top := len(sparkChars) - 1
	var b strings.Builder
	for _, v := range values {
		v = math.Min(math.Max(v, 0), 100)
		b.WriteByte(sparkChars[int(math.Round(v/100*float64(top)))])
	}
	return b.String()
}

// RenderReport prints the summary, grouped tables and accuracy curve.
func RenderReport(w io.Writer, r Report, width int, useColor bool) error {
	title := func(s string) string {
		if useColor {
			return titleStyle.Render(s)
		}
		return s
	}
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintf(w, "No trials recorded for subject %s.\n", r.Subject)
		return err
	}

	if _, err := fmt.Fprintln(w, title("Summary")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Subject: %s\n", r.Subject); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Trials: %d\n", r.Overall.Trials); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Accuracy: %.2f%%\n", r.Overall.Accuracy()*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Mean RT: %s s\n", recorder.FormatSeconds(r.Overall.MeanRT().Round(time.Millisecond))); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}

	sections := []struct {
		name   string
		groups []Group
	}{
		{"By Difficulty", r.ByDifficulty},
		{"By Correct Side", r.BySide},
		{"By Size Polarity", r.BySize},
	}
	for _, sec := range sections {
		if err := renderGroups(w, title(sec.name), sec.groups); err != nil {
			return err
		}
	}

	if len(r.Curve) == 0 {
		return nil
	}
	const label = "Accuracy: "
	curve := Resample(r.Curve, width-len(label))
	if _, err := fmt.Fprintln(w, title("Accuracy Curve")); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%s\n", label, PercentSparkline(curve))
	return err
}

func renderGroups(w io.Writer, name string, groups []Group) error {
	if _, err := fmt.Fprintln(w, name); err != nil {
		return err
	}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			fmt.Sprintf("%d", g.Trials),
			fmt.Sprintf("%.2f%%", g.Accuracy()*100),
			fmt.Sprintf("%.3f", g.MeanRT().Seconds()),
		})
	}
	for _, line := range formatTable(groupColumns, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
