package rotctld

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/w1xm/steprot/internal/metrics"
	"github.com/w1xm/steprot/rotator"
)

// ErrQuit is returned by Session.Handle once the client has sent "q". The
// caller should close the connection without writing a reply.
var ErrQuit = errors.New("rotctld: client quit")

const (
	replyDone       = "\n"
	replyNotCommand = "Not a command!\n"
)

// Session dispatches the commands of one client connection. Sessions share
// the rotator; the rotator serializes motion between them.
type Session struct {
	r       rotator.Rotator
	metrics *metrics.Collector
	closed  bool
}

func NewSession(r rotator.Rotator, m *metrics.Collector) *Session {
	return &Session{r: r, metrics: m}
}

// Closed reports whether the session has seen "q".
func (s *Session) Closed() bool {
	return s.closed
}

// Handle executes cmd and returns the reply to send. A non-nil error other
// than ErrQuit is a hardware fault meant for the operator log; the reply is
// still valid and the session stays open.
func (s *Session) Handle(cmd Command) (string, error) {
	if s.closed {
		return "", ErrQuit
	}
	name := cmd.Name()
	if name == "" {
		name = "invalid"
	}
	s.metrics.ObserveCommand(name)
	switch cmd := cmd.(type) {
	case PositionSet:
		if err := s.r.SetPosition(float64(cmd.Azimuth), float64(cmd.Elevation)); err != nil {
			return replyDone, fmt.Errorf("set position: %w", err)
		}
		return replyDone, nil
	case PositionGet:
		az, el := s.r.Position()
		return formatAngle(az) + "\n" + formatAngle(el) + "\n", nil
	case StepTest:
		if err := s.r.StepTest(int(cmd.Steps)); err != nil {
			return replyDone, err
		}
		return replyDone, nil
	case Close:
		s.closed = true
		if err := s.r.Zero(); err != nil {
			return "", fmt.Errorf("%w; zero on close: %w", ErrQuit, err)
		}
		return "", ErrQuit
	}
	return replyNotCommand, nil
}

// formatAngle prints the shortest decimal that round-trips as a float32,
// so "P 90 45.5" reads back as "90" and "45.5".
func formatAngle(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 32)
}
