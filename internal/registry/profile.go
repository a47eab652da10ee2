// Package registry holds the mutable state containers of a mailing session:
// the server profile list, the recipient list and the current message.
//
// Containers only enforce their own invariants. They are not safe for
// concurrent use; the navigation loop is their only writer.
package registry

import (
	"fmt"
	"net"
	"net/mail"
	"strconv"
	"strings"
)

// Encryption is the transport security used for a server connection.
type Encryption int

const (
	// EncryptionNone sends everything in clear text.
	EncryptionNone Encryption = iota
	// EncryptionSSL wraps the connection in TLS from the first byte.
	EncryptionSSL
	// EncryptionSTARTTLS upgrades a clear text connection before authentication.
	EncryptionSTARTTLS
)

// String returns the display name of the encryption mode.
func (e Encryption) String() string {
	switch e {
	case EncryptionNone:
		return "None"
	case EncryptionSSL:
		return "SSL"
	case EncryptionSTARTTLS:
		return "STARTTLS"
	default:
		return "Encryption(" + strconv.Itoa(int(e)) + ")"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Encryption) MarshalText() ([]byte, error) {
	switch e {
	case EncryptionNone, EncryptionSSL, EncryptionSTARTTLS:
		return []byte(strings.ToLower(e.String())), nil
	default:
		return nil, fmt.Errorf("invalid encryption %d", int(e))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encryption) UnmarshalText(text []byte) error {
	enc, err := ParseEncryption(string(text))
	if err != nil {
		return err
	}
	*e = enc
	return nil
}

// ParseEncryption parses "none", "ssl" or "starttls" (case-insensitive).
// An empty string means none.
func ParseEncryption(s string) (Encryption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EncryptionNone, nil
	case "ssl", "tls":
		return EncryptionSSL, nil
	case "starttls":
		return EncryptionSTARTTLS, nil
	default:
		return EncryptionNone, fmt.Errorf("unknown encryption %q", s)
	}
}

// Endpoint describes one mail server of a profile.
type Endpoint struct {
	Host          string     `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port          int        `yaml:"port" validate:"required,min=1,max=65535"`
	Encryption    Encryption `yaml:"encryption" validate:"oneof=0 1 2"`
	RequiresLogin bool       `yaml:"requires_login"`
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String renders the endpoint the way the profile list shows it.
func (e Endpoint) String() string {
	s := e.Addr()
	if e.Encryption != EncryptionNone {
		s += ", " + e.Encryption.String()
	}
	return s
}

// Sender is the identity put into the From header.
type Sender struct {
	DisplayName string `yaml:"display_name"`
	Address     string `yaml:"address" validate:"required,email"`
}

// String renders the sender as an RFC 5322 address.
func (s Sender) String() string {
	return (&mail.Address{Name: s.DisplayName, Address: s.Address}).String()
}

// ServerProfile is a complete outbound mail server setup. Credentials are never
// part of a profile; they are asked for at send time.
type ServerProfile struct {
	Name       string    `yaml:"name" validate:"required"`
	SMTP       Endpoint  `yaml:"smtp"`
	IMAP       *Endpoint `yaml:"imap,omitempty" validate:"omitempty"`
	ShareLogin bool      `yaml:"share_login"`
	Sender     Sender    `yaml:"sender"`
}
