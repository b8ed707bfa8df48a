package events

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/phuslu/log"
)

// Server accepts line-oriented TCP subscribers for the hub.
type Server struct {
	Addr string
	Hub  *Hub

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run blocks until Close is called or the listener fails. Run after Close
// returns nil without serving.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ln.Close()
	}
	s.ln = ln
	s.mu.Unlock()
	log.Info().Str("addr", ln.Addr().String()).Msg("tcp events listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("tcp accept")
			continue
		}

		// welcome goes out before the conn joins the hub so broadcasts
		// never precede it
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := conn.Write(welcome(transportTCP, s.Hub.Stats().TCPClients+1)); err != nil {
			_ = conn.Close()
			continue
		}
		s.Hub.Add(conn)
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("tcp client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				log.Debug().Str("remote", c.RemoteAddr().String()).Msg("tcp client disconnected")
			}()

			// subscribers only listen; drain anything they send
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

// ListenAddr returns the bound address once Run has started listening.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
