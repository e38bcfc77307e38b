package main

import (
	"fmt"
	"log"

	"github.com/w1xm/steprot/gpio/cdev"
	"github.com/w1xm/steprot/gpio/modbus"
	"github.com/w1xm/steprot/gpio/rpi"
	"github.com/w1xm/steprot/internal/config"
	"github.com/w1xm/steprot/stepper"
	"github.com/w1xm/steprot/stepper/simulator"
)

type hardware struct {
	az, el  stepper.Driver
	closers []func() error
}

func (h *hardware) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			log.Printf("closing hardware: %v", err)
		}
	}
}

func openHardware(cfg config.Config, verbose bool) (*hardware, error) {
	h := &hardware{}
	switch cfg.Backend {
	case "rpio":
		if err := rpi.Open(); err != nil {
			return nil, err
		}
		h.closers = append(h.closers, rpi.Close)
		h.az = rpi.NewLines(cfg.Azimuth.Pins)
		h.el = rpi.NewLines(cfg.Elevation.Pins)
	case "cdev":
		az, err := cdev.Open(cfg.Chip, cfg.Azimuth.Pins, "rotator-azimuth")
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, az.Close)
		el, err := cdev.Open(cfg.Chip, cfg.Elevation.Pins, "rotator-elevation")
		if err != nil {
			h.Close()
			return nil, err
		}
		h.closers = append(h.closers, el.Close)
		h.az, h.el = az, el
	case "modbus":
		bus, err := modbus.Connect(modbus.Config{
			Port:     cfg.Modbus.Port,
			BaudRate: cfg.Modbus.BaudRate,
			SlaveId:  cfg.Modbus.SlaveId,
			Address:  cfg.Modbus.Address,
		})
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, bus.Close)
		h.az = bus.Coils(cfg.Modbus.AzimuthCoil)
		h.el = bus.Coils(cfg.Modbus.ElevationCoil)
	case "sim":
		az, el := simulator.New("azimuth"), simulator.New("elevation")
		az.Verbose, el.Verbose = verbose, verbose
		h.az, h.el = az, el
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	log.Printf("using %s coil backend", cfg.Backend)
	return h, nil
}
