// Package stepper drives a four-wire unipolar stepper motor through a fixed
// coil phase table. It knows nothing about angles.
package stepper

import (
	"fmt"
	"sync"
	"time"
)

// Driver writes a phase to the four coil lines of one motor.
type Driver interface {
	Write(p Phase) error
}

// DefaultDwell is how long each phase is held before advancing.
const DefaultDwell = 2 * time.Millisecond

// Sequencer walks one motor's coils through a phase table.
type Sequencer struct {
	// Sleep is called between phases; defaults to time.Sleep.
	Sleep func(time.Duration)

	mu    sync.Mutex
	d     Driver
	table []Phase
	dwell time.Duration
	index int
}

// New returns a Sequencer on d. A nil table means FullStep and a
// non-positive dwell means DefaultDwell.
func New(d Driver, table []Phase, dwell time.Duration) *Sequencer {
	if len(table) == 0 {
		table = FullStep
	}
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Sequencer{
		Sleep: time.Sleep,
		d:     d,
		table: table,
		dwell: dwell,
	}
}

// Index returns the position in the phase table of the last emitted phase.
func (s *Sequencer) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Drive emits steps phases in the given direction, holding each for the
// dwell time. The coils are always released before Drive returns, even
// when a write fails part way through.
func (s *Sequencer) Drive(steps int, dir Direction) (err error) {
	if steps < 0 {
		return fmt.Errorf("negative step count %d", steps)
	}
	if steps == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if rerr := s.d.Write(Off); rerr != nil && err == nil {
			err = fmt.Errorf("releasing coils: %w", rerr)
		}
	}()
	n := len(s.table)
	for i := 0; i < steps; i++ {
		next := (s.index + 1) % n
		if dir == Backward {
			next = (s.index + n - 1) % n
		}
		if err := s.d.Write(s.table[next]); err != nil {
			return fmt.Errorf("step %d of %d (%s): %w", i+1, steps, dir, err)
		}
		s.index = next
		s.Sleep(s.dwell)
	}
	return nil
}

// Release de-energizes all four coils.
func (s *Sequencer) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Write(Off)
}
