package stepper

import "fmt"

// Phase is the on/off state of the four coil lines for one step.
type Phase [4]bool

// Off de-energizes every coil.
var Off = Phase{}

// FullStep is the one-coil-on wave sequence for a unipolar motor.
var FullStep = []Phase{
	{true, false, false, false},
	{false, true, false, false},
	{false, false, true, false},
	{false, false, false, true},
}

// HalfStep interleaves the two-coil phases between the FullStep phases,
// doubling the steps per revolution.
var HalfStep = []Phase{
	{true, false, false, false},
	{true, true, false, false},
	{false, true, false, false},
	{false, true, true, false},
	{false, false, true, false},
	{false, false, true, true},
	{false, false, false, true},
	{true, false, false, true},
}

// Table returns the phase table for a sequence name ("full" or "half").
func Table(name string) ([]Phase, error) {
	switch name {
	case "", "full":
		return FullStep, nil
	case "half":
		return HalfStep, nil
	}
	return nil, fmt.Errorf("unknown step sequence %q", name)
}

func (p Phase) String() string {
	b := []byte("0000")
	for i, on := range p {
		if on {
			b[i] = '1'
		}
	}
	return string(b)
}

// Direction is the order in which the phase table is walked.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// DirectionOf splits a signed step count into a magnitude and a direction.
func DirectionOf(steps int) (int, Direction) {
	if steps < 0 {
		return -steps, Backward
	}
	return steps, Forward
}
