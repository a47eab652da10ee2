// Package smtptest runs an in-process SMTP server on the loopback interface
// for exercising outbound transports. It speaks enough ESMTP for net/smtp:
// EHLO/HELO, STARTTLS, AUTH PLAIN and LOGIN, MAIL, RCPT, DATA, RSET, NOOP
// and QUIT. Every accepted message is recorded instead of delivered.
package smtptest

import (
	"crypto/tls"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shineum/bulk-mailer/internal/registry"
	mailtls "github.com/shineum/bulk-mailer/internal/tls"
)

// Security selects how the server offers TLS.
type Security int

const (
	// Plain never offers TLS.
	Plain Security = iota
	// StartTLS advertises the STARTTLS extension.
	StartTLS
	// Implicit wraps every connection in TLS from the first byte.
	Implicit
)

// Options configures a test server. The zero value is a plain server
// without authentication that accepts everything.
type Options struct {
	Hostname string
	Security Security

	// Username and Password enable AUTH. MAIL is refused until a client
	// has authenticated.
	Username string
	Password string

	// RejectHello answers EHLO and HELO with 554.
	RejectHello bool
	// RejectSender answers MAIL FROM with 553.
	RejectSender bool
	// RefuseRecipients answers RCPT TO with 550 for the listed addresses.
	RefuseRecipients []string
	// RejectData answers the end of DATA with 554.
	RejectData bool
}

// Delivery is one accepted message.
type Delivery struct {
	From string
	To   []string
	Data []byte
}

// Server is a running test server.
type Server struct {
	opts      Options
	auth      authenticator
	tlsConfig *tls.Config
	refused   map[string]bool
	listener  net.Listener

	wg         sync.WaitGroup
	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	deliveries []Delivery
	sessions   int
	quits      int
}

// Start listens on 127.0.0.1 and serves until the test ends.
func Start(t testing.TB, opts Options) *Server {
	t.Helper()

	if opts.Hostname == "" {
		opts.Hostname = "localhost"
	}
	s := &Server{
		opts:    opts,
		auth:    authenticator{username: opts.Username, password: opts.Password},
		refused: make(map[string]bool, len(opts.RefuseRecipients)),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, a := range opts.RefuseRecipients {
		s.refused[strings.ToLower(a)] = true
	}

	if opts.Security != Plain {
		cfg, err := mailtls.SelfSigned()
		if err != nil {
			t.Fatalf("smtptest: %v", err)
		}
		s.tlsConfig = cfg
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: failed to listen: %v", err)
	}
	if opts.Security == Implicit {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.sessions++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(s, conn).handle()

			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

// Close stops the listener, drops open sessions and waits for them to end.
func (s *Server) Close() {
	_ = s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Host returns the listen host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the listen port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// Endpoint returns a profile endpoint pointing at the server.
func (s *Server) Endpoint() registry.Endpoint {
	ep := registry.Endpoint{
		Host:          s.Host(),
		Port:          s.Port(),
		RequiresLogin: s.auth.enabled(),
	}
	switch s.opts.Security {
	case StartTLS:
		ep.Encryption = registry.EncryptionSTARTTLS
	case Implicit:
		ep.Encryption = registry.EncryptionSSL
	}
	return ep
}

// Deliveries returns the accepted messages in order.
func (s *Server) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

// Sessions returns the number of accepted connections.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Quits returns the number of sessions that ended with QUIT.
func (s *Server) Quits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quits
}

func (s *Server) record(d Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
	slog.Debug("smtptest: message accepted", "from", d.From, "to", d.To, "size", len(d.Data))
}

func (s *Server) quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quits++
}
