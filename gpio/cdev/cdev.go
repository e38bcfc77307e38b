// Package cdev drives coil lines through the Linux GPIO character device.
package cdev

import (
	"fmt"

	"github.com/w1xm/steprot/stepper"
	"github.com/warthog618/go-gpiocdev"
)

// DefaultChip is the first GPIO controller.
const DefaultChip = "gpiochip0"

// Lines holds a request for four output lines.
type Lines struct {
	req    *gpiocdev.Lines
	values []int
}

// Open requests the four line offsets on chip as outputs, initially low.
func Open(chip string, offsets [4]int, consumer string) (*Lines, error) {
	if chip == "" {
		chip = DefaultChip
	}
	req, err := gpiocdev.RequestLines(chip, offsets[:],
		gpiocdev.AsOutput(0, 0, 0, 0),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("requesting lines %v on %s: %w", offsets, chip, err)
	}
	return &Lines{req: req, values: make([]int, 4)}, nil
}

func (l *Lines) Write(p stepper.Phase) error {
	for i, on := range p {
		l.values[i] = 0
		if on {
			l.values[i] = 1
		}
	}
	return l.req.SetValues(l.values)
}

// Close drives the lines low and releases the request.
func (l *Lines) Close() error {
	werr := l.Write(stepper.Off)
	if err := l.req.Close(); err != nil {
		return err
	}
	return werr
}
