// Package planner converts commanded azimuth/elevation angles into step
// counts for two stepper motors and keeps the dead-reckoned position.
//
// There is no position feedback. Each move rounds the angle delta to a whole
// number of steps and then records the target as reached, so sub-step
// remainders accumulate as drift over many moves. Drift is only cleared by
// physically re-homing the mount and restarting.
package planner

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/w1xm/steprot/internal/metrics"
	"github.com/w1xm/steprot/rotator"
	"github.com/w1xm/steprot/stepper"
)

type Axis int

const (
	Azimuth Axis = iota
	Elevation
)

func (a Axis) String() string {
	if a == Elevation {
		return "elevation"
	}
	return "azimuth"
}

// Motor drives one axis. *stepper.Sequencer implements it.
type Motor interface {
	Drive(steps int, dir stepper.Direction) error
}

// AxisConfig describes one axis. Targets outside [Min, Max] degrees are
// rejected before any coil is energized.
type AxisConfig struct {
	StepsPerRevolution int
	Min, Max           float64
}

type Config struct {
	Azimuth       AxisConfig
	Elevation     AxisConfig
	HomeAzimuth   float64
	HomeElevation float64
}

// DefaultStepsPerRevolution is a 28BYJ-48 geared motor in full-step mode.
const DefaultStepsPerRevolution = 2048

func DefaultConfig() Config {
	return Config{
		Azimuth:       AxisConfig{StepsPerRevolution: DefaultStepsPerRevolution, Min: -360, Max: 360},
		Elevation:     AxisConfig{StepsPerRevolution: DefaultStepsPerRevolution, Min: 0, Max: 180},
		HomeAzimuth:   0,
		HomeElevation: 20,
	}
}

type AxisState struct {
	Current float64
	Target  float64
}

type Status struct {
	Azimuth   AxisState
	Elevation AxisState
	// StepTestCount is the step count of the last diagnostic step test.
	StepTestCount int
	// Moving is set while the motors are being driven.
	Moving    bool
	LastError string
}

func (s Status) Clone() rotator.Status {
	return s
}

func (s Status) AzimuthPosition() float64 {
	return s.Azimuth.Current
}

func (s Status) ElevationPosition() float64 {
	return s.Elevation.Current
}

func (s *Status) axis(a Axis) *AxisState {
	if a == Elevation {
		return &s.Elevation
	}
	return &s.Azimuth
}

// StepsFor converts an angle delta in degrees to a signed step count.
func StepsFor(delta float64, stepsPerRevolution int) int {
	return int(math.Round(delta * float64(stepsPerRevolution) / 360))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type Option func(*Planner)

func WithStatusCallback(cb rotator.StatusCallback) Option {
	return func(p *Planner) { p.statusCallback = cb }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(p *Planner) { p.metrics = m }
}

// Planner is the single owner of both motors. moveMu is held for the whole
// duration of any coil activity, so concurrent callers queue behind it.
type Planner struct {
	cfg            Config
	motors         [2]Motor
	statusCallback rotator.StatusCallback
	metrics        *metrics.Collector

	moveMu sync.Mutex

	mu     sync.RWMutex
	status Status
}

var _ rotator.Rotator = (*Planner)(nil)

// MaxSteps bounds the steps a single axis may be asked to travel in one move.
const MaxSteps = math.MaxInt32

// Validate checks the step counts, travel limits and home positions.
func (c Config) Validate() error {
	for _, ax := range []struct {
		a    Axis
		cfg  AxisConfig
		home float64
	}{{Azimuth, c.Azimuth, c.HomeAzimuth}, {Elevation, c.Elevation, c.HomeElevation}} {
		if ax.cfg.StepsPerRevolution <= 0 {
			return fmt.Errorf("%s: steps per revolution must be positive, got %d", ax.a, ax.cfg.StepsPerRevolution)
		}
		if !finite(ax.cfg.Min) || !finite(ax.cfg.Max) || ax.cfg.Min >= ax.cfg.Max {
			return fmt.Errorf("%s: invalid limits [%v, %v]", ax.a, ax.cfg.Min, ax.cfg.Max)
		}
		if (ax.cfg.Max-ax.cfg.Min)*float64(ax.cfg.StepsPerRevolution)/360 > MaxSteps {
			return fmt.Errorf("%s: limits [%v, %v] span more than %d steps", ax.a, ax.cfg.Min, ax.cfg.Max, MaxSteps)
		}
		if ax.home < ax.cfg.Min || ax.home > ax.cfg.Max {
			return fmt.Errorf("%s: home %v outside limits [%v, %v]", ax.a, ax.home, ax.cfg.Min, ax.cfg.Max)
		}
	}
	return nil
}

// New returns a planner that believes it is at the home position.
func New(cfg Config, az, el Motor, opts ...Option) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		cfg:    cfg,
		motors: [2]Motor{Azimuth: az, Elevation: el},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.status.Azimuth = AxisState{Current: cfg.HomeAzimuth, Target: cfg.HomeAzimuth}
	p.status.Elevation = AxisState{Current: cfg.HomeElevation, Target: cfg.HomeElevation}
	p.metrics.SetPosition(cfg.HomeAzimuth, cfg.HomeElevation)
	return p, nil
}

func (p *Planner) axisConfig(a Axis) AxisConfig {
	if a == Elevation {
		return p.cfg.Elevation
	}
	return p.cfg.Azimuth
}

func (p *Planner) checkTarget(a Axis, angle float64) error {
	ac := p.axisConfig(a)
	if !finite(angle) || angle < ac.Min || angle > ac.Max {
		return fmt.Errorf("%s target %v outside [%v, %v]", a, angle, ac.Min, ac.Max)
	}
	return nil
}

// Status returns a snapshot of the planner state.
func (p *Planner) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Position returns the dead-reckoned angles. It never waits for a move.
func (p *Planner) Position() (azimuth, elevation float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status.Azimuth.Current, p.status.Elevation.Current
}

func (p *Planner) SetPosition(azimuth, elevation float64) error {
	return p.SetTarget(azimuth, elevation)
}

// SetTarget moves elevation then azimuth to the given angles and returns
// once the motors have stopped. Targets outside the axis limits are refused
// without moving. If a motor fails the move is abandoned and the failed
// axis, and any axis not yet driven, keep their previous angle.
func (p *Planner) SetTarget(azimuth, elevation float64) error {
	if err := p.checkTarget(Azimuth, azimuth); err != nil {
		return err
	}
	if err := p.checkTarget(Elevation, elevation); err != nil {
		return err
	}
	p.moveMu.Lock()
	defer p.moveMu.Unlock()

	p.update(func(s *Status) {
		s.Azimuth.Target = azimuth
		s.Elevation.Target = elevation
		s.Moving = true
	})
	log.Printf("moving to az=%v el=%v", azimuth, elevation)

	start := time.Now()
	err := p.move()
	p.metrics.ObserveMove(err, time.Since(start))

	p.update(func(s *Status) {
		s.Moving = false
		s.LastError = ""
		if err != nil {
			s.LastError = err.Error()
		}
	})
	az, el := p.Position()
	p.metrics.SetPosition(az, el)
	return err
}

func (p *Planner) move() error {
	for _, a := range []Axis{Elevation, Azimuth} {
		p.mu.RLock()
		st := *p.status.axis(a)
		p.mu.RUnlock()

		if steps := StepsFor(st.Target-st.Current, p.axisConfig(a).StepsPerRevolution); steps != 0 {
			n, dir := stepper.DirectionOf(steps)
			if err := p.motors[a].Drive(n, dir); err != nil {
				return fmt.Errorf("driving %s %d steps %s: %w", a, n, dir, err)
			}
			p.metrics.ObserveSteps(a.String(), dir.String(), n)
		}
		p.update(func(s *Status) {
			s.axis(a).Current = s.axis(a).Target
		})
	}
	return nil
}

// StepTest drives |steps| raw steps on the elevation motor. The angle
// model is not touched.
func (p *Planner) StepTest(steps int) error {
	if steps > MaxSteps || steps < -MaxSteps {
		return fmt.Errorf("step test %d: more than %d steps", steps, MaxSteps)
	}
	p.moveMu.Lock()
	defer p.moveMu.Unlock()

	p.update(func(s *Status) {
		s.StepTestCount = steps
		s.Moving = true
	})
	log.Printf("step test: %d steps", steps)
	n, dir := stepper.DirectionOf(steps)
	var err error
	if n > 0 {
		err = p.motors[Elevation].Drive(n, dir)
		if err != nil {
			err = fmt.Errorf("step test %d: %w", steps, err)
		} else {
			p.metrics.ObserveSteps(Elevation.String(), dir.String(), n)
		}
	}
	p.update(func(s *Status) {
		s.Moving = false
		s.LastError = ""
		if err != nil {
			s.LastError = err.Error()
		}
	})
	return err
}

// Zero returns both axes to the home position.
func (p *Planner) Zero() error {
	return p.SetTarget(p.cfg.HomeAzimuth, p.cfg.HomeElevation)
}

func (p *Planner) update(f func(s *Status)) {
	p.mu.Lock()
	old := p.status
	f(&p.status)
	status := p.status
	p.mu.Unlock()
	if status != old && p.statusCallback != nil {
		p.statusCallback(status)
	}
}
