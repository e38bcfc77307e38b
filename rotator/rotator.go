package rotator

// Rotator is a two-axis positioner that moves to commanded angles.
type Rotator interface {
	// SetPosition blocks until both axes have reached the target.
	SetPosition(azimuth, elevation float64) error
	Position() (azimuth, elevation float64)
	// StepTest drives raw steps on the elevation motor without updating
	// the angle model.
	StepTest(steps int) error
	// Zero returns to the home position.
	Zero() error
}

type StatusCallback func(status Status)

type Status interface {
	AzimuthPosition() float64
	ElevationPosition() float64

	Clone() Status
}
