// Package smtp implements a Transport that delivers over SMTP with net/smtp.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/shineum/bulk-mailer/internal/registry"
	mailtls "github.com/shineum/bulk-mailer/internal/tls"
	"github.com/shineum/bulk-mailer/internal/transport"
)

// Config holds the settings shared by all sessions of a Transport.
type Config struct {
	// HeloName is sent with EHLO. Empty means "localhost".
	HeloName string

	// Timeout bounds dialing and, when the context has no deadline, the
	// whole session.
	Timeout time.Duration

	// TLSSkipVerify disables server certificate checks.
	TLSSkipVerify bool
}

// Transport dials SMTP servers.
type Transport struct {
	cfg Config
}

// New creates an SMTP Transport.
func New(cfg Config) *Transport {
	if cfg.HeloName == "" {
		cfg.HeloName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Transport{cfg: cfg}
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

// Dial opens a connection to ep. SSL endpoints get a TLS connection before
// the server greeting is read.
func (t *Transport) Dial(ctx context.Context, ep registry.Endpoint) (transport.Session, error) {
	dialer := &net.Dialer{Timeout: t.cfg.Timeout}
	tlsCfg := mailtls.ClientConfig(ep.Host, t.cfg.TLSSkipVerify)

	var (
		conn net.Conn
		err  error
	)
	if ep.Encryption == registry.EncryptionSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", ep.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", ep.Addr())
	}
	if err != nil {
		return nil, &transport.Error{Stage: transport.StageConnect, Err: err}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.cfg.Timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, &transport.Error{Stage: transport.StageConnect, Err: err}
	}

	client, err := smtp.NewClient(conn, ep.Host)
	if err != nil {
		conn.Close()
		return nil, wrap(transport.StageConnect, err)
	}

	slog.Debug("connected to SMTP server",
		"addr", ep.Addr(),
		"encryption", ep.Encryption.String(),
	)
	return &session{client: client, host: ep.Host, tls: tlsCfg, cfg: t.cfg}, nil
}

type session struct {
	client *smtp.Client
	host   string
	tls    *tls.Config
	cfg    Config
	closed bool
}

func (s *session) Hello(_ context.Context) error {
	return wrap(transport.StageHello, s.client.Hello(s.cfg.HeloName))
}

func (s *session) StartTLS(_ context.Context) error {
	if ok, _ := s.client.Extension("STARTTLS"); !ok {
		return &transport.Error{Stage: transport.StageStartTLS, Err: transport.ErrNotSupported}
	}
	return wrap(transport.StageStartTLS, s.client.StartTLS(s.tls))
}

func (s *session) Auth(_ context.Context, username, password string) error {
	if _, encrypted := s.client.TLSConnectionState(); !clearTextAllowed(s.host, encrypted) {
		return &transport.Error{Stage: transport.StageAuth, Err: transport.ErrInsecureAuth}
	}

	ok, mechs := s.client.Extension("AUTH")
	if !ok {
		return &transport.Error{Stage: transport.StageAuth, Err: transport.ErrNotSupported}
	}

	var auth smtp.Auth
	switch supported := strings.Fields(strings.ToUpper(mechs)); {
	case lo.Contains(supported, "PLAIN"):
		auth = smtp.PlainAuth("", username, password, s.host)
	case lo.Contains(supported, "LOGIN"):
		auth = &loginAuth{username: username, password: password}
	default:
		return &transport.Error{
			Stage:   transport.StageAuth,
			Message: "no supported mechanism in " + mechs,
			Err:     transport.ErrNotSupported,
		}
	}
	return wrap(transport.StageAuth, s.client.Auth(auth))
}

// Send runs one MAIL/RCPT/DATA transaction. Refused recipients are
// collected; the transaction is reset when nobody was accepted.
func (s *session) Send(_ context.Context, from string, to []string, data []byte) (map[string]transport.Reply, error) {
	if err := s.client.Mail(from); err != nil {
		return nil, wrap(transport.StageMail, err)
	}

	refused := make(map[string]transport.Reply)
	for _, addr := range to {
		err := s.client.Rcpt(addr)
		if err == nil {
			continue
		}
		var tpErr *textproto.Error
		if !errors.As(err, &tpErr) {
			return nil, wrap(transport.StageRcpt, err)
		}
		refused[addr] = transport.Reply{Code: tpErr.Code, Message: tpErr.Msg}
	}

	if len(refused) == len(to) {
		if err := s.client.Reset(); err != nil {
			slog.Debug("RSET after refused recipients failed", "error", err)
		}
		return refused, nil
	}

	w, err := s.client.Data()
	if err != nil {
		return refused, wrap(transport.StageData, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return refused, wrap(transport.StageData, err)
	}
	if err := w.Close(); err != nil {
		return refused, wrap(transport.StageData, err)
	}
	return refused, nil
}

// Close sends QUIT and closes the connection. If QUIT fails the connection
// is closed anyway.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.client.Quit(); err != nil {
		return multierr.Append(err, s.client.Close())
	}
	return nil
}

// wrap converts a net/smtp error into a *transport.Error for stage.
func wrap(stage transport.Stage, err error) error {
	if err == nil {
		return nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return &transport.Error{Stage: stage, Code: tpErr.Code, Message: tpErr.Msg, Err: err}
	}
	return &transport.Error{Stage: stage, Err: err}
}

// loginAuth implements the LOGIN mechanism, which net/smtp does not ship.
type loginAuth struct {
	username string
	password string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocal(server.Name) {
		return "", nil, errors.New("unencrypted connection")
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch prompt := strings.ToLower(strings.TrimSpace(string(fromServer))); {
	case strings.HasPrefix(prompt, "username"):
		return []byte(a.username), nil
	case strings.HasPrefix(prompt, "password"):
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("unexpected server challenge %q", fromServer)
	}
}

// clearTextAllowed mirrors the rule net/smtp applies to PLAIN: credentials
// only go out unencrypted to the local host.
func clearTextAllowed(host string, encrypted bool) bool {
	return encrypted || isLocal(host)
}

func isLocal(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
