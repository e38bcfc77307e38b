package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/steprot/planner"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rotator.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default().Planner(), planner.DefaultConfig()); diff != "" {
		t.Errorf("default planner config: got(-)/want(+):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
listen: "127.0.0.1:4533"
backend: cdev
chip: gpiochip4
sequence: half
dwell: 3ms
azimuth:
  pins: [17, 18, 27, 22]
  steps_per_revolution: 4096
elevation:
  home: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Listen = "127.0.0.1:4533"
	want.Backend = "cdev"
	want.Chip = "gpiochip4"
	want.Sequence = "half"
	want.Dwell = 3 * time.Millisecond
	want.Azimuth.Pins = [4]int{17, 18, 27, 22}
	want.Azimuth.StepsPerRevolution = 4096
	want.Elevation.Home = 10
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("unexpected config: got(-)/want(+):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"backend", func(c *Config) { c.Backend = "pwm" }, "unknown backend"},
		{"sequence", func(c *Config) { c.Sequence = "micro" }, "unknown step sequence"},
		{"dwell", func(c *Config) { c.Dwell = -time.Millisecond }, "negative dwell"},
		{"steps", func(c *Config) { c.Elevation.StepsPerRevolution = 0 }, "steps_per_revolution"},
		{"shared pin", func(c *Config) { c.Elevation.Pins[2] = 11 }, "already used by azimuth"},
		{"modbus target", func(c *Config) { c.Backend = "modbus" }, "port or address"},
		{"modbus overlap", func(c *Config) {
			c.Backend = "modbus"
			c.Modbus.Address = "10.0.0.2:502"
			c.Modbus.AzimuthCoil = 9
			c.Modbus.ElevationCoil = 6
		}, "overlap elevation coils 6-9"},
		{"home outside limits", func(c *Config) { c.Elevation.Home = 190 }, "outside limits"},
		{"inverted limits", func(c *Config) { c.Azimuth.Min = 400 }, "invalid limits"},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), test.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, test.errSub)
			}
		})
	}
}

func TestModbusCoils(t *testing.T) {
	for _, test := range []struct {
		name    string
		az, el  uint16
		wantErr bool
	}{
		{"default", 0, CoilsPerMotor, false},
		{"adjacent", 8, 4, false},
		{"same", 4, 4, true},
		{"shared last coil", 0, 3, true},
		{"shared first coil", 3, 0, true},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.Backend = "modbus"
			cfg.Modbus.Address = "10.0.0.2:502"
			cfg.Modbus.AzimuthCoil = test.az
			cfg.Modbus.ElevationCoil = test.el
			// GPIO pins do not apply to modbus.
			cfg.Elevation.Pins = cfg.Azimuth.Pins
			err := cfg.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() = %v, want error %v", err, test.wantErr)
			}
		})
	}
}

func TestLoadModbus(t *testing.T) {
	path := writeFile(t, `
backend: modbus
modbus:
  address: "10.0.0.2:502"
  azimuth_coil: 16
  elevation_coil: 20
azimuth:
  min: -180
  max: 180
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Backend = "modbus"
	want.Modbus.Address = "10.0.0.2:502"
	want.Modbus.AzimuthCoil = 16
	want.Modbus.ElevationCoil = 20
	want.Azimuth.Min = -180
	want.Azimuth.Max = 180
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("unexpected config: got(-)/want(+):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
