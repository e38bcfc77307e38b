// Package simulator provides a coil driver that records phases instead of
// touching hardware.
package simulator

import (
	"errors"
	"log"
	"sync"

	"github.com/w1xm/steprot/stepper"
)

var ErrInjected = errors.New("simulated coil fault")

type Coils struct {
	// Name prefixes log lines when Verbose is set.
	Name    string
	Verbose bool
	// FailAfter makes the nth energizing write (1-based) fail. Zero never fails.
	FailAfter int

	mu     sync.Mutex
	phases []stepper.Phase
	steps  int
	state  stepper.Phase
}

func New(name string) *Coils {
	return &Coils{Name: name}
}

func (c *Coils) Write(p stepper.Phase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p != stepper.Off {
		if c.FailAfter > 0 && c.steps+1 >= c.FailAfter {
			return ErrInjected
		}
		c.steps++
	}
	if c.Verbose {
		log.Printf("%s: coils %s", c.Name, p)
	}
	c.phases = append(c.phases, p)
	c.state = p
	return nil
}

// Steps returns the number of energizing writes seen.
func (c *Coils) Steps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}

// Phases returns a copy of every phase written, including releases.
func (c *Coils) Phases() []stepper.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]stepper.Phase(nil), c.phases...)
}

// Energized reports whether any coil is currently held on.
func (c *Coils) Energized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != stepper.Off
}

// Reset forgets recorded history.
func (c *Coils) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases = nil
	c.steps = 0
}
