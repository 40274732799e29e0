// Package trial builds two-alternative letter comparison trials.
package trial

import "fmt"

// Difficulty labels the distance band a trial is drawn from.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// Difficulties lists every label in canonical order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "EASY"
	case Medium:
		return "MEDIUM"
	case Hard:
		return "HARD"
	default:
		return fmt.Sprintf("Difficulty(%d)", int(d))
	}
}

func (d Difficulty) valid() bool {
	return d >= Easy && d <= Hard
}

// Band describes the distances and font ratio used for one difficulty.
type Band struct {
	Min       int
	FontRatio float64
}

// Table maps each difficulty to its band. Every band covers the half-open
// distance range [Min, Min+Span).
type Table struct {
	Span  int
	Bands [3]Band
}

// DefaultTable returns the standard difficulty bands.
func DefaultTable() Table {
	return Table{
		Span: 4,
		Bands: [3]Band{
			Easy:   {Min: 14, FontRatio: 0.4},
			Medium: {Min: 8, FontRatio: 0.7},
			Hard:   {Min: 2, FontRatio: 0.85},
		},
	}
}

// Range returns the half-open distance range for d.
func (t Table) Range(d Difficulty) (lo, hi int) {
	b := t.Bands[d]
	return b.Min, b.Min + t.Span
}

// Ratio returns the font ratio applied to the paired size for d.
func (t Table) Ratio(d Difficulty) float64 {
	return t.Bands[d].FontRatio
}

// Classify re-derives the difficulty whose range contains distance.
func (t Table) Classify(distance int) (Difficulty, bool) {
	if distance < 0 {
		distance = -distance
	}
	for _, d := range Difficulties {
		lo, hi := t.Range(d)
		if distance >= lo && distance < hi {
			return d, true
		}
	}
	return 0, false
}

func (t Table) validate(alphabetSize int) error {
	if t.Span < 1 {
		return fmt.Errorf("%w: span must be >= 1, got %d", ErrInvalidConfig, t.Span)
	}
	for _, d := range Difficulties {
		b := t.Bands[d]
		lo, hi := t.Range(d)
		if lo < 1 {
			return fmt.Errorf("%w: %s minimum distance must be >= 1, got %d", ErrInvalidConfig, d, lo)
		}
		// At least two pairs per orientation must exist at the largest distance.
		if hi-1 > alphabetSize-2 {
			return fmt.Errorf("%w: %s distances up to %d do not fit an alphabet of %d symbols", ErrInvalidConfig, d, hi-1, alphabetSize)
		}
		if b.FontRatio <= 0 || b.FontRatio >= 1 {
			return fmt.Errorf("%w: %s font ratio must be in (0,1), got %v", ErrInvalidConfig, d, b.FontRatio)
		}
		for _, other := range Difficulties {
			if other <= d {
				continue
			}
			olo, ohi := t.Range(other)
			if lo < ohi && olo < hi {
				return fmt.Errorf("%w: %s and %s distance ranges overlap", ErrInvalidConfig, d, other)
			}
		}
	}
	return nil
}
