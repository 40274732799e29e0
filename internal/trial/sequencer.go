package trial

// copiesPerLabel is how many times each difficulty appears in a full bag.
const copiesPerLabel = 2

// Sequencer draws difficulty labels without replacement from a bag holding
// two of each label, refilling the bag once it empties.
type Sequencer struct {
	rnd Rand
	bag []Difficulty
}

// NewSequencer returns a Sequencer with a full bag.
func NewSequencer(rnd Rand) *Sequencer {
	s := &Sequencer{rnd: rnd}
	s.refill()
	return s
}

// Next removes a uniformly chosen label from the bag and returns it.
func (s *Sequencer) Next() Difficulty {
	idx := s.rnd.Intn(len(s.bag))
	d := s.bag[idx]
	s.bag = append(s.bag[:idx], s.bag[idx+1:]...)
	if len(s.bag) == 0 {
		s.refill()
	}
	return d
}

// Remaining returns the number of labels left before the next refill.
func (s *Sequencer) Remaining() int {
	return len(s.bag)
}

func (s *Sequencer) refill() {
	s.bag = s.bag[:0]
	for i := 0; i < copiesPerLabel; i++ {
		s.bag = append(s.bag, Difficulties...)
	}
}
