package stepper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/steprot/stepper"
	"github.com/w1xm/steprot/stepper/simulator"
)

func noSleep(time.Duration) {}

func newSequencer(c *simulator.Coils, table []stepper.Phase) *stepper.Sequencer {
	s := stepper.New(c, table, time.Millisecond)
	s.Sleep = noSleep
	return s
}

func TestTables(t *testing.T) {
	for _, test := range []struct {
		name string
		want []string
	}{
		{"full", []string{"1000", "0100", "0010", "0001"}},
		{"half", []string{"1000", "1100", "0100", "0110", "0010", "0011", "0001", "1001"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			table, err := stepper.Table(test.name)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, p := range table {
				got = append(got, p.String())
			}
			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Errorf("unexpected table: got(-)/want(+):\n%s", diff)
			}
		})
	}
	if _, err := stepper.Table("quarter"); err == nil {
		t.Error("Table(quarter) succeeded, want error")
	}
}

// Adjacent half-step phases differ in exactly one coil.
func TestHalfStepSingleTransitions(t *testing.T) {
	n := len(stepper.HalfStep)
	for i := range stepper.HalfStep {
		a, b := stepper.HalfStep[i], stepper.HalfStep[(i+1)%n]
		changed := 0
		for j := range a {
			if a[j] != b[j] {
				changed++
			}
		}
		if changed != 1 {
			t.Errorf("phase %d -> %d changes %d coils, want 1", i, (i+1)%n, changed)
		}
	}
}

func TestDriveForward(t *testing.T) {
	c := simulator.New("test")
	s := newSequencer(c, stepper.FullStep)
	if err := s.Drive(5, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	want := []stepper.Phase{
		stepper.FullStep[1],
		stepper.FullStep[2],
		stepper.FullStep[3],
		stepper.FullStep[0],
		stepper.FullStep[1],
		stepper.Off,
	}
	if diff := cmp.Diff(c.Phases(), want); diff != "" {
		t.Errorf("unexpected phases: got(-)/want(+):\n%s", diff)
	}
	if got := s.Index(); got != 1 {
		t.Errorf("Index() = %d, want 1", got)
	}
	if c.Energized() {
		t.Error("coils left energized")
	}
}

func TestDriveBackward(t *testing.T) {
	c := simulator.New("test")
	s := newSequencer(c, stepper.HalfStep)
	if err := s.Drive(3, stepper.Backward); err != nil {
		t.Fatal(err)
	}
	want := []stepper.Phase{
		stepper.HalfStep[7],
		stepper.HalfStep[6],
		stepper.HalfStep[5],
		stepper.Off,
	}
	if diff := cmp.Diff(c.Phases(), want); diff != "" {
		t.Errorf("unexpected phases: got(-)/want(+):\n%s", diff)
	}
}

func TestDriveRoundTrip(t *testing.T) {
	for _, table := range [][]stepper.Phase{stepper.FullStep, stepper.HalfStep} {
		for n := 0; n <= 17; n++ {
			s := newSequencer(simulator.New("test"), table)
			// Start from an arbitrary phase.
			if err := s.Drive(3, stepper.Forward); err != nil {
				t.Fatal(err)
			}
			start := s.Index()
			if err := s.Drive(n, stepper.Forward); err != nil {
				t.Fatal(err)
			}
			if err := s.Drive(n, stepper.Backward); err != nil {
				t.Fatal(err)
			}
			if got := s.Index(); got != start {
				t.Errorf("table len %d, n=%d: index %d after round trip, want %d", len(table), n, got, start)
			}
		}
	}
}

func TestDriveZeroSteps(t *testing.T) {
	c := simulator.New("test")
	s := newSequencer(c, stepper.FullStep)
	if err := s.Drive(0, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	if got := len(c.Phases()); got != 0 {
		t.Errorf("%d writes for zero steps, want 0", got)
	}
}

func TestDriveNegative(t *testing.T) {
	s := newSequencer(simulator.New("test"), stepper.FullStep)
	if err := s.Drive(-1, stepper.Forward); err == nil {
		t.Error("Drive(-1) succeeded, want error")
	}
}

func TestDriveFaultReleasesCoils(t *testing.T) {
	c := simulator.New("test")
	c.FailAfter = 3
	s := newSequencer(c, stepper.FullStep)
	err := s.Drive(10, stepper.Forward)
	if !errors.Is(err, simulator.ErrInjected) {
		t.Fatalf("Drive: got %v, want ErrInjected", err)
	}
	if got := c.Steps(); got != 2 {
		t.Errorf("Steps() = %d, want 2", got)
	}
	if c.Energized() {
		t.Error("coils left energized after fault")
	}
	// The phase that failed to write was never seen by the motor.
	if got := s.Index(); got != 2 {
		t.Errorf("Index() after fault = %d, want 2", got)
	}

	c.FailAfter = 0
	c.Reset()
	if err := s.Drive(1, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	want := []stepper.Phase{stepper.FullStep[3], stepper.Off}
	if diff := cmp.Diff(c.Phases(), want); diff != "" {
		t.Errorf("phases after retry: got(-)/want(+):\n%s", diff)
	}
}

func TestDwell(t *testing.T) {
	var slept []time.Duration
	s := stepper.New(simulator.New("test"), nil, 0)
	s.Sleep = func(d time.Duration) { slept = append(slept, d) }
	if err := s.Drive(2, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{stepper.DefaultDwell, stepper.DefaultDwell}
	if diff := cmp.Diff(slept, want); diff != "" {
		t.Errorf("unexpected sleeps: got(-)/want(+):\n%s", diff)
	}
}

func TestDirectionOf(t *testing.T) {
	for _, test := range []struct {
		in   int
		n    int
		want stepper.Direction
	}{
		{0, 0, stepper.Forward},
		{7, 7, stepper.Forward},
		{-7, 7, stepper.Backward},
	} {
		n, dir := stepper.DirectionOf(test.in)
		if n != test.n || dir != test.want {
			t.Errorf("DirectionOf(%d) = %d, %v; want %d, %v", test.in, n, dir, test.n, test.want)
		}
	}
}
