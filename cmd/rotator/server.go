package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/w1xm/steprot/internal/metrics"
	"github.com/w1xm/steprot/planner"
	"github.com/w1xm/steprot/rotator"
)

// Server publishes planner status over HTTP and accepts the same moves as
// rotctld over a websocket.
type Server struct {
	p       *planner.Planner
	metrics *metrics.Collector

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     planner.Status
	// generation increments on every status change.
	generation int
}

func NewServer(m *metrics.Collector) *Server {
	s := &Server{metrics: m}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/api/status", http.HandlerFunc(s.StatusHandler)).Methods("GET")
	r.Handle("/api/ws", http.HandlerFunc(s.StatusSocketHandler))
	r.Handle("/metrics", s.metrics.Handler())
	return r
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		Addr:        addr,
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing status server")
		srv.Close()
	}()
	log.Printf("status server listening on %v", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(status)
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

type Command struct {
	Command   string  `json:"command"`
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Steps     int     `json:"steps"`
}

func (s *Server) handleCommand(msg Command) error {
	switch msg.Command {
	case "set_position":
		return s.p.SetTarget(msg.Azimuth, msg.Elevation)
	case "zero":
		return s.p.Zero()
	case "step_test":
		return s.p.StepTest(msg.Steps)
	}
	log.Printf("unknown websocket command %q", msg.Command)
	return nil
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	// Read and process incoming messages
	go func() {
		defer func() {
			cancel()
			s.wake()
		}()
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if err := s.handleCommand(msg); err != nil {
				log.Printf("%v: %s: %v", r.RemoteAddr, msg.Command, err)
			}
		}
	}()

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	seen := -1
	for ctx.Err() == nil {
		if s.generation == seen {
			s.statusCond.Wait()
			continue
		}
		seen = s.generation
		status := s.status
		s.statusMu.RUnlock()
		err := conn.WriteJSON(status)
		s.statusMu.RLock()
		if err != nil {
			log.Print(err)
			return
		}
	}
}

// wake unblocks every socket waiting for a status change.
func (s *Server) wake() {
	s.statusMu.Lock()
	s.statusCond.Broadcast()
	s.statusMu.Unlock()
}

func (s *Server) statusCallback(status rotator.Status) {
	st, ok := status.(planner.Status)
	if !ok {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = st
	s.generation++
	s.statusCond.Broadcast()
}
