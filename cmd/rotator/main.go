// Command rotator drives a stepper-motor az/el antenna mount and serves the
// hamlib rotctld protocol to tracking software.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/w1xm/steprot/internal/config"
	"github.com/w1xm/steprot/internal/metrics"
	"github.com/w1xm/steprot/planner"
	"github.com/w1xm/steprot/rotctld"
	"github.com/w1xm/steprot/stepper"
	"golang.org/x/sync/errgroup"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	listen     = flag.String("listen", "", "rotctld address, overrides the config file")
	httpAddr   = flag.String("http", "", "status server address, overrides the config file")
	serialPort = flag.String("serial", "", "also serve rotctld on this serial port")
	backend    = flag.String("backend", "", "coil backend: rpio, cdev, modbus or sim")
	verbose    = flag.Bool("verbose", false, "log every simulated coil write")
	logFile    = flag.String("log", "", "also append the log to this file")
)

// teeLog copies the standard logger to path as well as stderr.
func teeLog(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return cfg, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "http":
			cfg.HTTP = *httpAddr
		case "serial":
			cfg.Serial = *serialPort
		case "backend":
			cfg.Backend = *backend
		}
	})
	return cfg, cfg.Validate()
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := metrics.New(nil)
	if err != nil {
		return err
	}
	hw, err := openHardware(cfg, *verbose)
	if err != nil {
		return err
	}
	defer hw.Close()

	table, err := stepper.Table(cfg.Sequence)
	if err != nil {
		return err
	}
	az := stepper.New(hw.az, table, cfg.Dwell)
	el := stepper.New(hw.el, table, cfg.Dwell)
	defer func() {
		for _, s := range []*stepper.Sequencer{az, el} {
			if err := s.Release(); err != nil {
				log.Printf("releasing coils: %v", err)
			}
		}
	}()

	srv := NewServer(m)
	p, err := planner.New(cfg.Planner(), az, el,
		planner.WithMetrics(m),
		planner.WithStatusCallback(srv.statusCallback))
	if err != nil {
		return err
	}
	srv.p = p
	srv.statusCallback(p.Status())

	log.Printf("homing to az=%v el=%v", cfg.Azimuth.Home, cfg.Elevation.Home)
	if err := p.Zero(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	rs := &rotctld.Server{Rotator: p, Metrics: m}
	g.Go(func() error {
		return rs.ListenAndServe(ctx, cfg.Listen)
	})
	if cfg.Serial != "" {
		g.Go(func() error {
			return rs.ServeSerial(ctx, cfg.Serial, cfg.SerialBaud)
		})
	}
	if cfg.HTTP != "" {
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.HTTP)
		})
	}
	log.Print("ready for rotctld clients")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	flag.Parse()
	if *logFile != "" {
		f, err := teeLog(*logFile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}
