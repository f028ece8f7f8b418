package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"satleds/pkg/cue"
	"satleds/pkg/proto"
	"satleds/pkg/reactor"
)

type Option func(*Server)

// WithTiming overrides the reactor timing for every connection.
func WithTiming(t reactor.Timing) Option {
	return func(s *Server) {
		s.timing = t
	}
}

// New builds the event ingress. Each accepted connection gets its own
// reactor; they all share the one strip, which serializes writes itself.
func New(listen string, strip proto.Strip, cues cue.Trigger, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		listen: listen,
		strip:  strip,
		cues:   cues,
		logger: logger,
		timing: reactor.DefaultTiming(),
		fatal:  make(chan error, 1),
		conns:  map[net.Conn]struct{}{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type Server struct {
	listen string
	strip  proto.Strip
	cues   cue.Trigger
	logger *zap.Logger
	timing reactor.Timing

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool

	wg       sync.WaitGroup
	fatal    chan error
	stopOnce sync.Once
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go s.accept(ln)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Err delivers the first unrecoverable hardware failure. Closed on Stop.
func (s *Server) Err() <-chan error {
	return s.fatal
}

// Stop closes the listener and every live connection, then waits for
// their reactors to wind down.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.ln != nil {
			_ = s.ln.Close()
		}
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
		close(s.fatal)
	})
}

func (s *Server) accept(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.logger.With(zap.Error(err)).Info("accept failed")
			}
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serve(conn)
	}
}

type wireEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	logger := s.logger.With(
		zap.String("conn", xid.New().String()),
		zap.String("peer", conn.RemoteAddr().String()),
	)
	logger.Info("client connected")

	r := reactor.New(s.strip, s.cues, logger, reactor.WithTiming(s.timing))

	errc := make(chan error, 1)
	go func() {
		errc <- r.Run()
	}()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			logger.With(zap.Error(err)).Info("bad event line, skipping")
			continue
		}

		r.Submit(reactor.FromWire(ev.Type, ev.Data))
	}

	r.Stop()
	if err := <-errc; err != nil {
		logger.With(zap.Error(err)).Error("reactor halted")
		select {
		case s.fatal <- err:
		default:
		}
		return
	}

	logger.Info("client disconnected")
}
