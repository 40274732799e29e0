// Package session ties one subject to a trial generator and a result log.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/alphacmp/internal/recorder"
	"github.com/verte-zerg/alphacmp/internal/trial"
)

// StepsPerStar is the number of correct answers that fill the progress bar.
// A full bar is cashed in for a star on the next correct answer.
const StepsPerStar = 5

var (
	// ErrNoTrial is returned by Respond when no trial is awaiting an answer.
	ErrNoTrial = errors.New("no trial awaiting a response")
	// ErrFinished is returned once the configured number of rounds is done.
	ErrFinished = errors.New("session finished")
)

// Generator produces trials.
type Generator interface {
	Next() trial.Trial
}

// Recorder persists answered trials.
type Recorder interface {
	Record(subjectID string, t trial.Trial, resp recorder.Response) error
}

// Options configures a Session.
type Options struct {
	// Rounds ends the session after this many answers; 0 means unlimited.
	Rounds int
	Logger *slog.Logger
}

// Outcome summarizes the effect of one answer.
type Outcome struct {
	Correct    bool
	StarEarned bool
	Round      int
	Finished   bool
}

// Session is the per-subject state for one sitting. It is not safe for
// concurrent use.
type Session struct {
	id        uuid.UUID
	subjectID string
	gen       Generator
	rec       Recorder
	logger    *slog.Logger
	maxRounds int

	current trial.Trial
	pending bool

	rounds   int
	points   int
	steps    int
	stars    int
	recorded int
}

// New starts a session for subjectID.
func New(subjectID string, gen Generator, rec Recorder, opts Options) (*Session, error) {
	if err := recorder.ValidateSubject(subjectID); err != nil {
		return nil, err
	}
	if opts.Rounds < 0 {
		return nil, fmt.Errorf("rounds must be >= 0, got %d", opts.Rounds)
	}
	id := uuid.New()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		id:        id,
		subjectID: subjectID,
		gen:       gen,
		rec:       rec,
		logger:    logger.With("session", id.String(), "subject", subjectID),
		maxRounds: opts.Rounds,
	}, nil
}

// Next produces the trial to present and marks it as awaiting an answer.
func (s *Session) Next() (trial.Trial, error) {
	if s.Finished() {
		return trial.Trial{}, ErrFinished
	}
	s.current = s.gen.Next()
	s.pending = true
	s.logger.Debug("trial ready",
		"left", string(s.current.LeftSymbol),
		"right", string(s.current.RightSymbol),
		"difficulty", s.current.Difficulty.String(),
		"distance", s.current.Distance,
	)
	return s.current, nil
}

// Respond scores the pending trial and records it. A record error is
// returned alongside a valid Outcome; the session continues and the trial
// counts as unrecorded.
func (s *Session) Respond(chosen trial.Side, responseTime time.Duration) (Outcome, error) {
	if !s.pending {
		return Outcome{}, ErrNoTrial
	}
	s.pending = false
	s.rounds++

	out := Outcome{Correct: chosen == s.current.Correct, Round: s.rounds}
	if out.Correct {
		s.points++
		if s.steps >= StepsPerStar {
			s.steps = 0
			s.stars++
			out.StarEarned = true
		}
		s.steps++
	}
	out.Finished = s.Finished()

	resp := recorder.Response{Chosen: chosen, ResponseTime: responseTime, Round: s.rounds}
	if err := s.rec.Record(s.subjectID, s.current, resp); err != nil {
		s.logger.Error("failed to record trial", "round", s.rounds, "err", err)
		return out, fmt.Errorf("failed to record round %d: %w", s.rounds, err)
	}
	s.recorded++
	s.logger.Debug("trial recorded", "round", s.rounds, "correct", out.Correct, "rt", responseTime)
	return out, nil
}

// ID returns the unique id of this sitting.
func (s *Session) ID() uuid.UUID { return s.id }

// SubjectID returns the subject this session belongs to.
func (s *Session) SubjectID() string { return s.subjectID }

// Current returns the last produced trial and whether it awaits an answer.
func (s *Session) Current() (trial.Trial, bool) { return s.current, s.pending }

// Rounds returns the number of answered trials.
func (s *Session) Rounds() int { return s.rounds }

// MaxRounds returns the configured session length; 0 means unlimited.
func (s *Session) MaxRounds() int { return s.maxRounds }

// Points returns the number of correct answers.
func (s *Session) Points() int { return s.points }

// Stars returns the number of filled progress bars.
func (s *Session) Stars() int { return s.stars }

// Recorded returns the number of trials successfully written to the log.
func (s *Session) Recorded() int { return s.recorded }

// Progress returns the progress bar fill in [0,1].
func (s *Session) Progress() float64 {
	return float64(s.steps) / StepsPerStar
}

// Finished reports whether the configured number of rounds is complete.
func (s *Session) Finished() bool {
	return s.maxRounds > 0 && s.rounds >= s.maxRounds
}
