// Package trial builds two-alternative letter comparison trials.
package trial

import "errors"

// ErrInvalidConfig reports a generator configuration that cannot produce trials.
var ErrInvalidConfig = errors.New("invalid trial configuration")

// Side identifies one of the two presented positions.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Rand is the random source used by the sequencer and generator.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Trial is one stimulus pair and its ground truth.
type Trial struct {
	LeftSymbol  rune
	RightSymbol rune
	LeftSize    int
	RightSize   int
	Correct     Side
	Distance    int
	Difficulty  Difficulty
}

// Pair returns the ordered symbols shown on the left and right.
func (t Trial) Pair() (rune, rune) {
	return t.LeftSymbol, t.RightSymbol
}

// BiggerIsCorrect reports whether the correct side also shows the larger font.
func (t Trial) BiggerIsCorrect() bool {
	if t.Correct == Left {
		return t.LeftSize > t.RightSize
	}
	return t.RightSize > t.LeftSize
}

// SymbolOn returns the symbol shown on side s.
func (t Trial) SymbolOn(s Side) rune {
	if s == Left {
		return t.LeftSymbol
	}
	return t.RightSymbol
}

// SizeOn returns the font size used on side s.
func (t Trial) SizeOn(s Side) int {
	if s == Left {
		return t.LeftSize
	}
	return t.RightSize
}
