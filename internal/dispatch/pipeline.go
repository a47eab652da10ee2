// Package dispatch sends the current message to every recipient through the
// active server profile and reports one Outcome per attempt.
//
// Failures of the connection (greeting, STARTTLS, login, sender, data) abort
// the attempt. Refused recipient addresses are collected and reported
// together once every recipient has been tried.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/samber/lo"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

// DefaultTimeout bounds a whole dispatch attempt.
const DefaultTimeout = 30 * time.Second

// Precondition errors. They are returned as errors, not outcomes, because no
// server was contacted.
var (
	ErrNoActiveConnection = errors.New("no active server connection")
	ErrNoMessage          = errors.New("no message loaded")
	ErrNoRecipients       = errors.New("no recipients")
)

// Credentials are the login data asked for at send time. They are never
// stored.
type Credentials struct {
	Username string
	Password string
}

func (c *Credentials) present() bool {
	return c != nil && c.Username != ""
}

// Request is everything one dispatch attempt needs.
type Request struct {
	Profile     *registry.ServerProfile
	Recipients  []registry.Recipient
	Message     *email.Message
	Credentials *Credentials

	// Progress, if set, is called after each recipient with the addresses
	// the server refused for it.
	Progress func(index int, rcpt registry.Recipient, refused map[string]transport.Reply)
}

// Pipeline runs dispatch attempts over a Transport.
type Pipeline struct {
	transport transport.Transport
	timeout   time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout sets the deadline of a whole attempt. Zero or less disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// New creates a Pipeline.
func New(t transport.Transport, opts ...Option) *Pipeline {
	p := &Pipeline{transport: t, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transport returns the transport name.
func (p *Pipeline) Transport() string {
	return p.transport.Name()
}

// Dispatch sends req.Message to every recipient, one envelope per recipient
// in registry order. The returned error is only set for precondition
// failures: ErrNoActiveConnection, ErrNoMessage, or ErrNoRecipients when the
// recipient list is empty (nothing would be sent, so no connection is
// opened and no OK is reported). Everything that happens on the wire is an
// Outcome. The session is closed before Dispatch returns.
func (p *Pipeline) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	if req.Profile == nil {
		return Outcome{}, ErrNoActiveConnection
	}
	if req.Message == nil {
		return Outcome{}, ErrNoMessage
	}
	if len(req.Recipients) == 0 {
		return Outcome{}, ErrNoRecipients
	}

	ep := req.Profile.SMTP
	if ep.RequiresLogin && !req.Credentials.present() {
		slog.Info("dispatch needs login data", "profile", req.Profile.Name)
		return Outcome{
			Kind:   SMTPMissingLoginData,
			Detail: fmt.Sprintf("server %s requires login", ep.Addr()),
		}, nil
	}

	from := &mail.Address{Name: req.Profile.Sender.DisplayName, Address: req.Profile.Sender.Address}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log := slog.With(
		"profile", req.Profile.Name,
		"server", ep.Addr(),
		"transport", p.transport.Name(),
	)
	log.Info("dispatch started", "recipients", len(req.Recipients))

	sess, err := p.transport.Dial(ctx, ep)
	if err != nil {
		return p.abort(log, err), nil
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debug("closing session failed", "error", err)
		}
	}()

	if err := p.open(ctx, sess, ep, req.Credentials); err != nil {
		return p.abort(log, err), nil
	}

	refused := make(map[string]transport.Reply)
	for i, rcpt := range req.Recipients {
		msg := req.Message.Addressed(from, rcpt.MailAddresses())

		r, err := sess.Send(ctx, from.Address, rcpt.Addresses, msg.Bytes())
		if err != nil {
			log.Warn("dispatch aborted", "recipient", rcpt.Name, "index", i)
			return p.abort(log, err), nil
		}
		refused = lo.Assign(refused, r)

		log.Debug("recipient processed",
			"recipient", rcpt.Name,
			"addresses", len(rcpt.Addresses),
			"refused", len(r),
		)
		if req.Progress != nil {
			req.Progress(i, rcpt, r)
		}
	}

	if len(refused) > 0 {
		out := refusedOutcome(refused)
		log.Warn("dispatch finished with refused recipients", "refused", out.RefusedAddresses())
		return out, nil
	}

	log.Info("dispatch finished")
	return Outcome{
		Kind:   OK,
		Code:   250,
		Detail: fmt.Sprintf("message sent to %d recipients", len(req.Recipients)),
	}, nil
}

// open performs the greeting, the STARTTLS upgrade and the login. The
// greeting is always explicit so a profile without login is still greeted.
func (p *Pipeline) open(ctx context.Context, sess transport.Session, ep registry.Endpoint, creds *Credentials) error {
	if err := sess.Hello(ctx); err != nil {
		return err
	}
	if ep.Encryption == registry.EncryptionSTARTTLS {
		if err := sess.StartTLS(ctx); err != nil {
			return err
		}
	}
	if ep.RequiresLogin {
		if err := sess.Auth(ctx, creds.Username, creds.Password); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) abort(log *slog.Logger, err error) Outcome {
	out := Classify(err)
	out.Cause = err
	log.Error("dispatch failed", "outcome", out.Kind.String(), "code", out.Code, "error", err)
	return out
}
