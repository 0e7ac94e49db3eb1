package proxy

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/net/netutil"

	"starbridge.xyz/starbridge/internal/log"
)

// Server owns the listening socket and hands accepted clients to the
// registry.
type Server struct {
	listenAddr string
	maxClients int
	registry   *Registry
	log        log.Logger

	ln net.Listener
}

// NewServer creates a proxy server. maxClients of zero means unlimited.
func NewServer(listenAddr string, maxClients int, registry *Registry) *Server {
	return &Server{
		listenAddr: listenAddr,
		maxClients: maxClients,
		registry:   registry,
		log:        log.GetLogger().WithField("component", "server"),
	}
}

// Start binds the listening socket and begins accepting in the
// background. A bind failure is returned to the caller, which treats it
// as fatal to the process.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.listenAddr, err)
	}
	if s.maxClients > 0 {
		ln = netutil.LimitListener(ln, s.maxClients)
	}
	s.ln = ln

	s.log.WithField("addr", s.listenAddr).Info("listening for game clients")
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.WithError(err).Warn("accept failed")
			continue
		}
		s.registry.Accept(conn)
	}
}

// Stop closes the listener and tears down every live connection.
func (s *Server) Stop() {
	if s.ln != nil {
		s.ln.Close()
	}
	s.registry.Shutdown()
	s.log.Info("proxy stopped")
}
