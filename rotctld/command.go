// Package rotctld serves the hamlib rotctld short command set on top of a
// rotator.Rotator.
//
// Supported commands, one per line:
//
//	P az el   set position, reply "\n" once the move completes
//	p         get position, reply "<az>\n<el>\n"
//	s n       step test n raw elevation steps, reply "\n"
//	q         return home and close the connection
//
// Anything else is answered with "Not a command!\n".
package rotctld

import (
	"math"
	"strconv"
	"strings"
)

// Command is one decoded client request.
type Command interface {
	// Name is the command token, or "" for NotACommand.
	Name() string
}

type PositionSet struct {
	Azimuth, Elevation float32
}

type PositionGet struct{}

type StepTest struct {
	Steps int32
}

type Close struct{}

type NotACommand struct{}

func (PositionSet) Name() string { return "P" }
func (PositionGet) Name() string { return "p" }
func (StepTest) Name() string    { return "s" }
func (Close) Name() string       { return "q" }
func (NotACommand) Name() string { return "" }

// Decode parses one command line. It never fails: unknown tokens, missing
// parameters and parameters that are not finite numbers all decode to
// NotACommand.
func Decode(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return NotACommand{}
	}
	cmd := fields[0]
	params := make([]float32, 0, len(fields)-1)
	for _, field := range fields[1:] {
		f, err := strconv.ParseFloat(field, 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return NotACommand{}
		}
		params = append(params, float32(f))
	}
	switch cmd {
	case "P":
		if len(params) < 2 {
			return NotACommand{}
		}
		return PositionSet{Azimuth: params[0], Elevation: params[1]}
	case "p":
		return PositionGet{}
	case "s":
		if len(params) < 1 {
			return NotACommand{}
		}
		n := math.Trunc(float64(params[0]))
		if n > math.MaxInt32 || n < math.MinInt32 {
			return NotACommand{}
		}
		return StepTest{Steps: int32(n)}
	case "q":
		return Close{}
	}
	return NotACommand{}
}
