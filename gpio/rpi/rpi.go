// Package rpi drives coil lines through the Raspberry Pi's memory-mapped
// GPIO registers.
package rpi

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/w1xm/steprot/stepper"
)

// Open maps the GPIO registers. It must be called before Lines.
func Open() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("opening gpio memory: %w", err)
	}
	return nil
}

// Close unmaps the GPIO registers.
func Close() error {
	return rpio.Close()
}

// Lines is four BCM-numbered output pins wired to one motor's coils.
type Lines struct {
	pins [4]rpio.Pin
}

// NewLines configures the pins as outputs, driven low.
func NewLines(bcm [4]int) *Lines {
	l := &Lines{}
	for i, n := range bcm {
		l.pins[i] = rpio.Pin(n)
		l.pins[i].Output()
		l.pins[i].Low()
	}
	return l
}

func (l *Lines) Write(p stepper.Phase) error {
	for i, on := range p {
		if on {
			l.pins[i].High()
		} else {
			l.pins[i].Low()
		}
	}
	return nil
}
