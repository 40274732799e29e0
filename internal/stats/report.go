// Package stats summarizes recorded trial logs.
package stats

import (
	"fmt"

	"github.com/verte-zerg/alphacmp/internal/model"
	"github.com/verte-zerg/alphacmp/internal/recorder"
	"github.com/verte-zerg/alphacmp/internal/trial"
)

// unlabeled groups rows whose distance fell outside every band.
const unlabeled = "(none)"

// Report contains precomputed data for stats rendering.
type Report struct {
	Subject      string
	Entries      []recorder.Entry
	Overall      Group
	ByDifficulty []Group
	BySide       []Group
	BySize       []Group
	Curve        []float64
}

// BuildReport loads a subject's log and aggregates it.
func BuildReport(cfg model.StatsConfig) (Report, error) {
	if err := recorder.ValidateSubject(cfg.Subject); err != nil {
		return Report{}, err
	}
	path := recorder.New(cfg.ResultsDir).Path(cfg.Subject)
	entries, err := recorder.ReadLog(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if cfg.Last > 0 && len(entries) > cfg.Last {
		entries = entries[len(entries)-cfg.Last:]
	}
	return Summarize(cfg.Subject, entries, cfg.CurveWindow), nil
}

// Summarize groups entries by difficulty, correct side and size polarity.
func Summarize(subject string, entries []recorder.Entry, window int) Report {
	r := Report{Subject: subject, Entries: entries}

	byDifficulty := map[string]*Group{}
	var difficultyOrder []string
	for _, d := range trial.Difficulties {
		difficultyOrder = append(difficultyOrder, d.String())
	}
	bySide := map[string]*Group{}
	sideOrder := []string{trial.Left.String(), trial.Right.String()}
	bySize := map[string]*Group{}
	sizeOrder := []string{"Bigger", "Smaller"}

	for _, e := range entries {
		r.Overall.add(e)

		label := e.Difficulty
		if label == "" {
			label = unlabeled
		}
		groupFor(byDifficulty, label).add(e)
		groupFor(bySide, e.Correct.String()).add(e)
		size := "Smaller"
		if e.BiggerCorrect {
			size = "Bigger"
		}
		groupFor(bySize, size).add(e)
	}
	r.Overall.Label = "all"

	r.ByDifficulty = ordered(byDifficulty, append(difficultyOrder, unlabeled))
	r.BySide = ordered(bySide, sideOrder)
	r.BySize = ordered(bySize, sizeOrder)
	r.Curve = AccuracyCurve(entries, window)
	return r
}

func groupFor(groups map[string]*Group, label string) *Group {
	g, ok := groups[label]
	if !ok {
		g = &Group{Label: label}
		groups[label] = g
	}
	return g
}

func ordered(groups map[string]*Group, order []string) []Group {
	out := make([]Group, 0, len(groups))
	for _, label := range order {
		if g, ok := groups[label]; ok {
			out = append(out, *g)
		}
	}
	return out
}
