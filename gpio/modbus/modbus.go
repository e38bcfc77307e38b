// Package modbus drives coil lines on a Modbus remote I/O module, over RTU
// serial or TCP.
package modbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/w1xm/steprot/stepper"
)

type modbusHandler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

type Config struct {
	// Port and BaudRate create a local serial (RTU) connection
	Port string
	// BaudRate defaults to 19200
	BaudRate int
	SlaveId  byte
	// Address creates a Modbus TCP connection instead
	Address string
}

// Bus is one connection to an I/O module. Both motors may share it, so
// every transaction holds mu.
type Bus struct {
	mu      sync.Mutex
	handler modbusHandler
	client  modbus.Client
	name    string
}

func Connect(c Config) (*Bus, error) {
	var handler modbusHandler
	name := c.Address
	if c.Address != "" {
		h := modbus.NewTCPClientHandler(c.Address)
		h.Timeout = 1 * time.Second
		h.SlaveId = c.SlaveId
		handler = h
	} else {
		baud := c.BaudRate
		if baud == 0 {
			baud = 19200
		}
		h := modbus.NewRTUClientHandler(c.Port)
		h.BaudRate = baud
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = 1 * time.Second
		h.SlaveId = c.SlaveId
		handler = h
		name = c.Port
	}
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}
	return &Bus{
		handler: handler,
		client:  modbus.NewClient(handler),
		name:    name,
	}, nil
}

func (b *Bus) Close() error {
	return b.handler.Close()
}

// Coils returns a driver for the four consecutive coils starting at first.
func (b *Bus) Coils(first uint16) *Coils {
	return &Coils{bus: b, first: first}
}

type Coils struct {
	bus   *Bus
	first uint16
}

// Write sets all four coils in a single transaction so the motor never
// sees a half-written phase.
func (c *Coils) Write(p stepper.Phase) error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	if _, err := c.bus.client.WriteMultipleCoils(c.first, uint16(len(p)), []byte{PackPhase(p)}); err != nil {
		return fmt.Errorf("writing coils %d-%d on %q: %w", c.first, int(c.first)+len(p)-1, c.bus.name, err)
	}
	return nil
}

// PackPhase packs a phase LSB first, the Modbus coil bit order.
func PackPhase(p stepper.Phase) byte {
	var b byte
	for i, on := range p {
		if on {
			b |= 1 << uint(i)
		}
	}
	return b
}
