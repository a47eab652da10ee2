// Package stdout implements a dry-run Transport that prints every envelope
// instead of delivering it.
package stdout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

const separator = "========================================\n"

// Transport prints messages in a human-readable format.
type Transport struct {
	writer io.Writer
}

// New creates a Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a Transport that writes to w.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// Dial never fails.
func (t *Transport) Dial(_ context.Context, ep registry.Endpoint) (transport.Session, error) {
	return &session{writer: t.writer, endpoint: ep}, nil
}

type session struct {
	writer   io.Writer
	endpoint registry.Endpoint
}

func (s *session) Hello(context.Context) error                { return nil }
func (s *session) StartTLS(context.Context) error             { return nil }
func (s *session) Auth(context.Context, string, string) error { return nil }
func (s *session) Close() error                               { return nil }

// Send prints the envelope and a short summary of the message. Nothing is
// ever refused.
func (s *session) Send(_ context.Context, from string, to []string, data []byte) (map[string]transport.Reply, error) {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "Server: %s\n", s.endpoint)
	fmt.Fprintf(&b, "Envelope From: %s\n", from)
	fmt.Fprintf(&b, "Envelope To: %s\n", strings.Join(to, ", "))

	if msg, err := mail.ReadMessage(bytes.NewReader(data)); err == nil {
		for _, key := range []string{"From", "To", "Subject"} {
			if v := msg.Header.Get(key); v != "" {
				fmt.Fprintf(&b, "%s: %s\n", key, v)
			}
		}
	}
	fmt.Fprintf(&b, "Size: %s\n", formatSize(len(data)))
	b.WriteString(separator)

	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return nil, &transport.Error{Stage: transport.StageData, Err: err}
	}
	return map[string]transport.Reply{}, nil
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
