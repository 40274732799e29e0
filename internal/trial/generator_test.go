package trial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed draws and fails the test when exhausted or
// when a draw is out of range.
type scriptedRand struct {
	t    *testing.T
	vals []int
}

func script(t *testing.T, vals ...int) *scriptedRand {
	return &scriptedRand{t: t, vals: vals}
}

func (s *scriptedRand) Intn(n int) int {
	s.t.Helper()
	if len(s.vals) == 0 {
		s.t.Fatalf("scripted rand exhausted (Intn(%d))", n)
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	if v < 0 || v >= n {
		s.t.Fatalf("scripted value %d out of range for Intn(%d)", v, n)
	}
	return v
}

type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

func TestNextBuildsExpectedPair(t *testing.T) {
	// bag index 2 -> HARD, distance 2+3, base 150, swap sizes, lower 3, keep order.
	g, err := NewGenerator(Options{Rand: script(t, 2, 3, 0, 1, 3, 0)})
	require.NoError(t, err)

	tr := g.Next()
	assert.Equal(t, Hard, tr.Difficulty)
	assert.Equal(t, 5, tr.Distance)
	assert.Equal(t, 'D', tr.LeftSymbol)
	assert.Equal(t, 'I', tr.RightSymbol)
	assert.Equal(t, Right, tr.Correct)
	assert.Equal(t, 128, tr.LeftSize)
	assert.Equal(t, 150, tr.RightSize)
	assert.True(t, tr.BiggerIsCorrect())
}

func TestSideStreakIsCorrected(t *testing.T) {
	g, err := NewGenerator(Options{Rand: script(t,
		0, 0, 0, 0, 0, 1,
		0, 0, 0, 1, 1, 1,
		0, 0, 0, 0, 2, 1,
		0, 0, 0, 1, 3, 1,
	)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tr := g.Next()
		require.Equal(t, Left, tr.Correct, "trial %d", i+1)
	}
	require.Equal(t, 2, g.state.sameSide)

	fourth := g.Next()
	assert.Equal(t, Right, fourth.Correct)
	assert.Equal(t, 'D', fourth.LeftSymbol)
	assert.Equal(t, 'R', fourth.RightSymbol)
	assert.Equal(t, 0, g.state.sameSide)
	assert.False(t, g.state.lastLeftCorrect)
	// The symbol keeps its size across the side swap.
	assert.False(t, fourth.BiggerIsCorrect())
	assert.Equal(t, 150, fourth.LeftSize)
}

func TestSizeStreakIsCorrected(t *testing.T) {
	g, err := NewGenerator(Options{Rand: script(t,
		0, 0, 0, 0, 0, 1,
		0, 0, 0, 1, 1, 0,
		0, 0, 0, 0, 2, 1,
		0, 0, 0, 1, 3, 0,
	)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tr := g.Next()
		require.True(t, tr.BiggerIsCorrect(), "trial %d", i+1)
	}
	fourth := g.Next()
	assert.Equal(t, Right, fourth.Correct)
	assert.False(t, fourth.BiggerIsCorrect())
	assert.Equal(t, 0, g.state.sameSize)
}

func TestRepeatPairIsRedrawnAtSameDistance(t *testing.T) {
	g, err := NewGenerator(Options{Rand: script(t,
		0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0,
		1, 0, 5, 0,
	)})
	require.NoError(t, err)

	first := g.Next()
	assert.Equal(t, 'A', first.LeftSymbol)
	assert.Equal(t, 'O', first.RightSymbol)

	second := g.Next()
	assert.Equal(t, Easy, second.Difficulty)
	assert.Equal(t, 14, second.Distance)
	assert.Equal(t, 'F', second.LeftSymbol)
	assert.Equal(t, 'T', second.RightSymbol)
	assert.Equal(t, 200, second.LeftSize)
}

func TestRepeatPairWidensToOtherDistance(t *testing.T) {
	table := Table{
		Span: 2,
		Bands: [3]Band{
			Easy:   {Min: 5, FontRatio: 0.4},
			Medium: {Min: 3, FontRatio: 0.7},
			Hard:   {Min: 1, FontRatio: 0.85},
		},
	}
	// First trial: base 150, no swap, lower 0, no order swap -> A B.
	vals := []int{0, 0, 0, 0}
	// Every redraw at distance 1 lands on A B again.
	for i := 0; i < maxRepeatRetries; i++ {
		vals = append(vals, 0, 0, 0, 0)
	}
	// Distance 2: lower 1 -> B D.
	vals = append(vals, 0, 0, 1, 0)
	g, err := NewGenerator(Options{Rand: script(t, vals...), Alphabet: "ABCDEFGH", Table: &table})
	require.NoError(t, err)

	first := g.generate(Hard, 1)
	require.Equal(t, 'A', first.LeftSymbol)
	require.Equal(t, 'B', first.RightSymbol)

	second := g.generate(Hard, 1)
	assert.Equal(t, 2, second.Distance)
	lo, hi := table.Range(Hard)
	assert.GreaterOrEqual(t, second.Distance, lo)
	assert.Less(t, second.Distance, hi)
	label, ok := table.Classify(second.Distance)
	assert.True(t, ok)
	assert.Equal(t, Hard, label)
	assert.Equal(t, Hard, second.Difficulty)
	assert.Equal(t, 'B', second.LeftSymbol)
	assert.Equal(t, 'D', second.RightSymbol)
	assert.False(t, second.LeftSymbol == first.LeftSymbol && second.RightSymbol == first.RightSymbol)
}

func TestRepeatPairFallsBackToRotation(t *testing.T) {
	table := Table{
		Span: 1,
		Bands: [3]Band{
			Easy:   {Min: 3, FontRatio: 0.4},
			Medium: {Min: 2, FontRatio: 0.7},
			Hard:   {Min: 1, FontRatio: 0.85},
		},
	}
	g, err := NewGenerator(Options{Rand: zeroRand{}, Alphabet: "ABCDE", Table: &table})
	require.NoError(t, err)

	first := g.generate(Hard, 1)
	require.Equal(t, 'A', first.LeftSymbol)
	require.Equal(t, 'B', first.RightSymbol)

	second := g.generate(Hard, 1)
	assert.Equal(t, 'B', second.LeftSymbol)
	assert.Equal(t, 'C', second.RightSymbol)
	assert.Equal(t, 1, second.Distance)
	assert.Equal(t, Right, second.Correct)
}

func TestGeneratedTrialsHoldInvariants(t *testing.T) {
	g, err := NewGenerator(Options{Rand: rand.New(rand.NewSource(42))})
	require.NoError(t, err)
	table := g.Table()

	var history []Trial
	for i := 0; i < 5000; i++ {
		tr := g.Next()
		require.NotEqual(t, tr.LeftSymbol, tr.RightSymbol)
		lo, hi := table.Range(tr.Difficulty)
		require.GreaterOrEqual(t, tr.Distance, lo)
		require.Less(t, tr.Distance, hi)
		label, ok := table.Classify(tr.Distance)
		require.True(t, ok)
		require.Equal(t, tr.Difficulty, label)
		require.Positive(t, tr.LeftSize)
		require.Positive(t, tr.RightSize)
		require.NotEqual(t, tr.LeftSize, tr.RightSize)

		gap := int(tr.RightSymbol) - int(tr.LeftSymbol)
		if gap < 0 {
			gap = -gap
		}
		require.Equal(t, tr.Distance, gap)
		if tr.Correct == Left {
			require.Greater(t, tr.LeftSymbol, tr.RightSymbol)
		} else {
			require.Greater(t, tr.RightSymbol, tr.LeftSymbol)
		}

		if n := len(history); n > 0 {
			prev := history[n-1]
			samePair := prev.LeftSymbol == tr.LeftSymbol && prev.RightSymbol == tr.RightSymbol
			require.False(t, samePair, "trial %d repeats previous pair", i)
		}
		history = append(history, tr)
	}

	for i := 3; i < len(history); i++ {
		w := history[i-3 : i+1]
		sameSide := w[0].Correct == w[1].Correct && w[1].Correct == w[2].Correct && w[2].Correct == w[3].Correct
		require.False(t, sameSide, "four consecutive %s answers ending at %d", w[0].Correct, i)
		b := w[0].BiggerIsCorrect()
		sameSize := b == w[1].BiggerIsCorrect() && b == w[2].BiggerIsCorrect() && b == w[3].BiggerIsCorrect()
		require.False(t, sameSize, "four consecutive size polarities ending at %d", i)
	}
}

func TestNewGeneratorRejectsInvalidConfig(t *testing.T) {
	wide := DefaultTable()
	wide.Bands[Easy].Min = 30

	overlap := DefaultTable()
	overlap.Bands[Medium].Min = 12

	badRatio := DefaultTable()
	badRatio.Bands[Hard].FontRatio = 1

	zeroMin := DefaultTable()
	zeroMin.Bands[Hard].Min = 0

	cases := map[string]Options{
		"distance exceeds alphabet": {Table: &wide},
		"overlapping bands":         {Table: &overlap},
		"ratio out of range":        {Table: &badRatio},
		"zero minimum":              {Table: &zeroMin},
		"duplicate symbols":         {Alphabet: "AABCDEFGHIJKLMNOPQRSTUVWXY"},
		"negative streak":           {MaxStreak: -1},
		"non-positive size":         {BaseSizes: []int{150, 0}},
		"ratio collapses size":      {BaseSizes: []int{2}},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewGenerator(opts)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
