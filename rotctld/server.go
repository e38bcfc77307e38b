package rotctld

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/tarm/serial"
	"github.com/w1xm/steprot/internal/metrics"
	"github.com/w1xm/steprot/rotator"
)

// DefaultAddr is the hamlib rotctld port.
const DefaultAddr = ":4533"

type Server struct {
	Rotator rotator.Rotator
	Metrics *metrics.Collector
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("rotctld listening on %v", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts connections until ctx is canceled. Each connection gets its
// own Session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing rotctld socket")
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("failed to accept: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	if err := s.serveStream(ctx, conn, conn.RemoteAddr().String()); err != nil {
		log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}

// serveStream runs one session over rw and closes it when the session ends
// or ctx is canceled.
func (s *Server) serveStream(ctx context.Context, rw io.ReadWriteCloser, peer string) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		rw.Close()
	}()

	s.Metrics.SessionOpened()
	defer s.Metrics.SessionClosed()

	session := NewSession(s.Rotator, s.Metrics)
	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		cmd := Decode(line)
		log.Printf("%v command: %q decoded: %#v", peer, line, cmd)
		reply, err := session.Handle(cmd)
		if errors.Is(err, ErrQuit) {
			if err != ErrQuit {
				log.Printf("%v: %v", peer, err)
			}
			log.Printf("%v: client sent quit; closing connection", peer)
			return nil
		}
		if err != nil {
			// Hardware faults are reported locally; the client only sees
			// the position it can query next.
			log.Printf("%v: %v", peer, err)
		}
		if _, err := io.WriteString(rw, reply); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}

// ServeSerial speaks the same protocol on a serial line, reopening the port
// whenever it fails or the client quits.
func (s *Server) ServeSerial(ctx context.Context, port string, baud int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
		p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
		if err != nil {
			log.Printf("opening %q: %v", port, err)
			continue
		}
		log.Printf("opened %q", port)
		if err := s.serveStream(ctx, p, port); err != nil {
			log.Printf("reading serial port %q: %v", port, err)
		}
	}
}
