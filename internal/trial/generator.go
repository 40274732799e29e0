package trial

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// DefaultAlphabet is the symbol set trials are drawn from.
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultMaxStreak caps how many consecutive trials may share a polarity.
const DefaultMaxStreak = 3

// maxRepeatRetries bounds redraws at one distance when the pair repeats.
const maxRepeatRetries = 16

// DefaultBaseSizes are the small, medium and large font sizes.
var DefaultBaseSizes = []int{150, 200, 300}

// Options configures a Generator. Zero fields take defaults.
type Options struct {
	Rand      Rand
	Alphabet  string
	Table     *Table
	BaseSizes []int
	MaxStreak int
}

// Generator produces trials with balanced difficulty and bounded
// side/size repetition.
type Generator struct {
	rnd       Rand
	seq       *Sequencer
	alphabet  []rune
	table     Table
	baseSizes []int
	maxStreak int
	state     repetition
}

// repetition holds the streak bookkeeping carried between trials.
type repetition struct {
	started         bool
	sameSide        int
	sameSize        int
	lastLeftCorrect bool
	lastBigCorrect  bool
	hasPrev         bool
	prevLeft        int
	prevRight       int
}

// placement is a raw assignment before streak corrections.
type placement struct {
	left, right         int
	leftSize, rightSize int
}

// NewGenerator validates opts and returns a ready Generator.
func NewGenerator(opts Options) (*Generator, error) {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	table := DefaultTable()
	if opts.Table != nil {
		table = *opts.Table
	}
	sizes := opts.BaseSizes
	if len(sizes) == 0 {
		sizes = DefaultBaseSizes
	}
	maxStreak := opts.MaxStreak
	if maxStreak == 0 {
		maxStreak = DefaultMaxStreak
	}

	symbols := []rune(alphabet)
	if err := validateOptions(symbols, table, sizes, maxStreak); err != nil {
		return nil, err
	}
	return &Generator{
		rnd:       rnd,
		seq:       NewSequencer(rnd),
		alphabet:  symbols,
		table:     table,
		baseSizes: append([]int(nil), sizes...),
		maxStreak: maxStreak,
	}, nil
}

func validateOptions(symbols []rune, table Table, sizes []int, maxStreak int) error {
	if len(symbols) < 2 {
		return fmt.Errorf("%w: alphabet needs at least 2 symbols", ErrInvalidConfig)
	}
	seen := make(map[rune]struct{}, len(symbols))
	for _, r := range symbols {
		if _, ok := seen[r]; ok {
			return fmt.Errorf("%w: duplicate symbol %q in alphabet", ErrInvalidConfig, r)
		}
		seen[r] = struct{}{}
	}
	if maxStreak < 1 {
		return fmt.Errorf("%w: max streak must be >= 1, got %d", ErrInvalidConfig, maxStreak)
	}
	if err := table.validate(len(symbols)); err != nil {
		return err
	}
	for _, base := range sizes {
		if base <= 0 {
			return fmt.Errorf("%w: base font size must be > 0, got %d", ErrInvalidConfig, base)
		}
		for _, d := range Difficulties {
			paired := pairedSize(base, table.Ratio(d))
			if paired < 1 || paired >= base {
				return fmt.Errorf("%w: %s ratio turns base size %d into %d", ErrInvalidConfig, d, base, paired)
			}
		}
	}
	return nil
}

// Table returns the difficulty table used for distances and ratios.
func (g *Generator) Table() Table {
	return g.table
}

// Sequencer exposes the difficulty bag.
func (g *Generator) Sequencer() *Sequencer {
	return g.seq
}

// Next returns the next trial.
func (g *Generator) Next() Trial {
	label := g.seq.Next()
	lo, _ := g.table.Range(label)
	distance := lo + g.rnd.Intn(g.table.Span)
	return g.generate(label, distance)
}

func (g *Generator) generate(label Difficulty, distance int) Trial {
	var raw placement
	for i := 0; i < maxRepeatRetries; i++ {
		raw = g.draw(label, distance)
		if t, ok := g.accept(label, distance, raw); ok {
			return t
		}
	}

	lo, hi := g.table.Range(label)
	for d := lo; d < hi; d++ {
		if d == distance {
			continue
		}
		if t, ok := g.accept(label, d, g.draw(label, d)); ok {
			return t
		}
	}

	// Shifting the pair keeps distance and orientation, so the result is
	// corrected the same way and cannot match the previous pair.
	raw = g.rotate(raw, distance)
	t, next := g.resolve(label, distance, raw)
	g.state = next
	return t
}

func (g *Generator) accept(label Difficulty, distance int, raw placement) (Trial, bool) {
	t, next := g.resolve(label, distance, raw)
	if g.state.hasPrev && next.prevLeft == g.state.prevLeft && next.prevRight == g.state.prevRight {
		return Trial{}, false
	}
	g.state = next
	return t, true
}

func (g *Generator) draw(label Difficulty, distance int) placement {
	base := g.baseSizes[g.rnd.Intn(len(g.baseSizes))]
	paired := pairedSize(base, g.table.Ratio(label))
	raw := placement{leftSize: base, rightSize: paired}
	if g.rnd.Intn(2) == 1 {
		raw.leftSize, raw.rightSize = raw.rightSize, raw.leftSize
	}

	lower := g.rnd.Intn(len(g.alphabet) - distance)
	raw.left, raw.right = lower, lower+distance
	if g.rnd.Intn(2) == 1 {
		raw.left, raw.right = raw.right, raw.left
	}
	return raw
}

func (g *Generator) rotate(raw placement, distance int) placement {
	lower := min(raw.left, raw.right)
	shift := (lower+1)%(len(g.alphabet)-distance) - lower
	raw.left += shift
	raw.right += shift
	return raw
}

// resolve applies streak bookkeeping and corrections to raw without
// mutating the generator.
func (g *Generator) resolve(label Difficulty, distance int, raw placement) (Trial, repetition) {
	st := g.state
	leftCorrect := raw.left > raw.right
	bigCorrect := raw.leftSize > raw.rightSize
	if !leftCorrect {
		bigCorrect = raw.rightSize > raw.leftSize
	}

	if st.started && leftCorrect == st.lastLeftCorrect {
		st.sameSide++
	} else {
		st.sameSide = 0
	}
	if st.started && bigCorrect == st.lastBigCorrect {
		st.sameSize++
	} else {
		st.sameSize = 0
	}
	st.started = true
	st.lastLeftCorrect = leftCorrect
	st.lastBigCorrect = bigCorrect

	if st.sameSize >= g.maxStreak {
		tmp := raw.leftSize
		raw.leftSize = raw.rightSize
		raw.rightSize = tmp
		st.sameSize = 0
		st.lastBigCorrect = !st.lastBigCorrect
	}
	if st.sameSide >= g.maxStreak {
		// Each symbol keeps its size so the size polarity is unchanged.
		raw = placement{
			left:      raw.right,
			right:     raw.left,
			leftSize:  raw.rightSize,
			rightSize: raw.leftSize,
		}
		st.sameSide = 0
		st.lastLeftCorrect = !st.lastLeftCorrect
	}

	correct := Right
	if raw.left > raw.right {
		correct = Left
	}
	st.hasPrev = true
	st.prevLeft = raw.left
	st.prevRight = raw.right

	return Trial{
		LeftSymbol:  g.alphabet[raw.left],
		RightSymbol: g.alphabet[raw.right],
		LeftSize:    raw.leftSize,
		RightSize:   raw.rightSize,
		Correct:     correct,
		Distance:    distance,
		Difficulty:  label,
	}, st
}

func pairedSize(base int, ratio float64) int {
	return int(math.Round(ratio * float64(base)))
}
