// Package config loads the controller's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/w1xm/steprot/planner"
	"github.com/w1xm/steprot/stepper"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	Listen string `yaml:"listen"` // rotctld TCP address
	HTTP   string `yaml:"http"`   // status server address, "" disables it
	// Serial, when set, also serves rotctld on this serial port.
	Serial     string `yaml:"serial"`
	SerialBaud int    `yaml:"serial_baud"`

	Backend  string        `yaml:"backend"`  // rpio, cdev, modbus or sim
	Chip     string        `yaml:"chip"`     // cdev GPIO chip
	Sequence string        `yaml:"sequence"` // full or half
	Dwell    time.Duration `yaml:"dwell"`

	Azimuth   AxisConfig   `yaml:"azimuth"`
	Elevation AxisConfig   `yaml:"elevation"`
	Modbus    ModbusConfig `yaml:"modbus"`
}

// AxisConfig describes one motor. Pins are BCM numbers for rpio and line
// offsets for cdev. Min and Max bound the accepted targets in degrees.
type AxisConfig struct {
	Pins               [4]int  `yaml:"pins"`
	StepsPerRevolution int     `yaml:"steps_per_revolution"`
	Home               float64 `yaml:"home"`
	Min                float64 `yaml:"min"`
	Max                float64 `yaml:"max"`
}

type ModbusConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud"`
	SlaveId  byte   `yaml:"slave_id"`
	Address  string `yaml:"address"`
	// AzimuthCoil and ElevationCoil are the first of each motor's four
	// consecutive coils.
	AzimuthCoil   uint16 `yaml:"azimuth_coil"`
	ElevationCoil uint16 `yaml:"elevation_coil"`
}

// CoilsPerMotor is the number of consecutive coils one motor occupies.
const CoilsPerMotor = 4

// Default matches the reference mount wiring: elevation on BCM 6,13,19,26,
// azimuth on BCM 9,11,0,5, homed at az 0 el 20.
func Default() Config {
	return Config{
		Listen:     ":4533",
		SerialBaud: 9600,
		Backend:    "rpio",
		Chip:       "gpiochip0",
		Sequence:   "full",
		Dwell:      stepper.DefaultDwell,
		Azimuth: AxisConfig{
			Pins:               [4]int{9, 11, 0, 5},
			StepsPerRevolution: planner.DefaultStepsPerRevolution,
			Home:               0,
			Min:                -360,
			Max:                360,
		},
		Elevation: AxisConfig{
			Pins:               [4]int{6, 13, 19, 26},
			StepsPerRevolution: planner.DefaultStepsPerRevolution,
			Home:               20,
			Min:                0,
			Max:                180,
		},
		Modbus: ModbusConfig{
			BaudRate:      19200,
			SlaveId:       1,
			AzimuthCoil:   0,
			ElevationCoil: CoilsPerMotor,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Backend {
	case "rpio", "cdev", "modbus", "sim":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := stepper.Table(c.Sequence); err != nil {
		return err
	}
	if c.Dwell < 0 {
		return fmt.Errorf("negative dwell %v", c.Dwell)
	}
	seen := map[int]string{}
	for _, ax := range []struct {
		name string
		cfg  AxisConfig
	}{{"azimuth", c.Azimuth}, {"elevation", c.Elevation}} {
		if ax.cfg.StepsPerRevolution <= 0 {
			return fmt.Errorf("%s: steps_per_revolution must be positive", ax.name)
		}
		if c.Backend == "modbus" {
			continue
		}
		for _, pin := range ax.cfg.Pins {
			if other, ok := seen[pin]; ok {
				return fmt.Errorf("%s: pin %d already used by %s", ax.name, pin, other)
			}
			seen[pin] = ax.name
		}
	}
	if c.Backend == "modbus" {
		if c.Modbus.Port == "" && c.Modbus.Address == "" {
			return fmt.Errorf("modbus: port or address required")
		}
		az, el := int(c.Modbus.AzimuthCoil), int(c.Modbus.ElevationCoil)
		if az < el+CoilsPerMotor && el < az+CoilsPerMotor {
			return fmt.Errorf("modbus: azimuth coils %d-%d overlap elevation coils %d-%d",
				az, az+CoilsPerMotor-1, el, el+CoilsPerMotor-1)
		}
	}
	return c.Planner().Validate()
}

// Planner returns the motion planner settings.
func (c Config) Planner() planner.Config {
	return planner.Config{
		Azimuth: planner.AxisConfig{
			StepsPerRevolution: c.Azimuth.StepsPerRevolution,
			Min:                c.Azimuth.Min,
			Max:                c.Azimuth.Max,
		},
		Elevation: planner.AxisConfig{
			StepsPerRevolution: c.Elevation.StepsPerRevolution,
			Min:                c.Elevation.Min,
			Max:                c.Elevation.Max,
		},
		HomeAzimuth:   c.Azimuth.Home,
		HomeElevation: c.Elevation.Home,
	}
}
