// Package transport defines the interface for outbound mail backends.
//
// A Transport opens a Session against one server endpoint. The dispatch
// pipeline drives the session through greeting, optional STARTTLS upgrade,
// optional authentication and one Send per recipient, then closes it.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/shineum/bulk-mailer/internal/registry"
)

var (
	// ErrNotSupported is returned when the server lacks a required extension.
	ErrNotSupported = errors.New("extension not supported by server")

	// ErrInsecureAuth is returned when login would send credentials in clear
	// text to a remote host.
	ErrInsecureAuth = errors.New("refusing to send credentials over an unencrypted connection")
)

// Transport is the interface that mail delivery backends must implement.
type Transport interface {
	// Dial connects to the endpoint. For SSL endpoints the connection is
	// encrypted before the first byte is exchanged.
	Dial(ctx context.Context, ep registry.Endpoint) (Session, error)

	// Name returns the human-readable name of this transport.
	Name() string
}

// Session is one open connection to a mail server.
type Session interface {
	Hello(ctx context.Context) error
	StartTLS(ctx context.Context) error
	Auth(ctx context.Context, username, password string) error

	// Send delivers data to every address in to within one envelope. It
	// returns the addresses the server refused; a refusal of some addresses
	// is not an error. When every address is refused nothing is delivered.
	Send(ctx context.Context, from string, to []string, data []byte) (map[string]Reply, error)

	// Close ends the session. It is safe to call more than once.
	Close() error
}

// Reply is a server status line.
type Reply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// String renders the reply the way the server sent it.
func (r Reply) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Message)
}

// Stage names the protocol step an Error happened in.
type Stage string

// Protocol stages.
const (
	StageConnect  Stage = "connect"
	StageHello    Stage = "hello"
	StageStartTLS Stage = "starttls"
	StageAuth     Stage = "auth"
	StageMail     Stage = "mail"
	StageRcpt     Stage = "rcpt"
	StageData     Stage = "data"
)

// Error is a failure of a session step. Code is the server reply code, or
// zero when the failure was local (network, TLS, encoding).
type Error struct {
	Stage   Stage
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("%s: %d %s", e.Stage, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
