package simulator

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/steprot/stepper"
)

func TestDrivenBySequencer(t *testing.T) {
	c := New("test")
	s := stepper.New(c, stepper.HalfStep, time.Millisecond)
	s.Sleep = func(time.Duration) {}
	if err := s.Drive(3, stepper.Forward); err != nil {
		t.Fatal(err)
	}
	want := []stepper.Phase{stepper.HalfStep[1], stepper.HalfStep[2], stepper.HalfStep[3], stepper.Off}
	if diff := cmp.Diff(c.Phases(), want); diff != "" {
		t.Errorf("unexpected phases: got(-)/want(+):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	c := New("test")
	for _, p := range []stepper.Phase{stepper.FullStep[0], stepper.FullStep[1], stepper.Off} {
		if err := c.Write(p); err != nil {
			t.Fatal(err)
		}
	}
	want := []stepper.Phase{stepper.FullStep[0], stepper.FullStep[1], stepper.Off}
	if diff := cmp.Diff(c.Phases(), want); diff != "" {
		t.Errorf("unexpected phases: got(-)/want(+):\n%s", diff)
	}
	if got := c.Steps(); got != 2 {
		t.Errorf("Steps() = %d, want 2", got)
	}
	if c.Energized() {
		t.Error("coils energized after release")
	}
	c.Reset()
	if got := len(c.Phases()); got != 0 {
		t.Errorf("%d phases after Reset", got)
	}
}

func TestFailAfter(t *testing.T) {
	c := New("test")
	c.FailAfter = 3
	for i := 0; i < 2; i++ {
		if err := c.Write(stepper.FullStep[i]); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := c.Write(stepper.FullStep[2]); !errors.Is(err, ErrInjected) {
		t.Errorf("third write returned %v, want ErrInjected", err)
	}
	if err := c.Write(stepper.Off); err != nil {
		t.Errorf("release failed: %v", err)
	}
	if got := c.Steps(); got != 2 {
		t.Errorf("Steps() = %d, want 2", got)
	}
}
