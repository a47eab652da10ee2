package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

func TestSendPrintsEnvelope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sess, err := NewWithWriter(&buf).Dial(context.Background(), registry.Endpoint{
		Host:       "smtp.example.com",
		Port:       465,
		Encryption: registry.EncryptionSSL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := []byte("From: me@example.com\r\nTo: \"Ann\" <a@example.com>\r\nSubject: Monthly Report\r\n\r\nbody\r\n")
	refused, err := sess.Send(context.Background(), "me@example.com", []string{"a@example.com", "a2@example.com"}, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refused) != 0 {
		t.Errorf("refused: got %v", refused)
	}

	output := buf.String()
	for _, want := range []string{
		"Server: smtp.example.com:465, SSL",
		"Envelope To: a@example.com, a2@example.com",
		"Subject: Monthly Report",
		`To: "Ann" <a@example.com>`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if !strings.HasPrefix(output, separator) || !strings.HasSuffix(output, separator) {
		t.Error("output should be framed by separator lines")
	}
}

func TestSendPlainBody(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sess, _ := NewWithWriter(&buf).Dial(context.Background(), registry.Endpoint{Host: "h", Port: 25})

	if _, err := sess.Send(context.Background(), "me@example.com", []string{"a@example.com"}, []byte("no headers here")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "Subject:") {
		t.Error("no Subject line expected for a headerless message")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestSendWriteError(t *testing.T) {
	t.Parallel()

	sess, _ := NewWithWriter(failingWriter{}).Dial(context.Background(), registry.Endpoint{Host: "h", Port: 25})
	_, err := sess.Send(context.Background(), "me@example.com", []string{"a@example.com"}, []byte("x"))

	var te *transport.Error
	if !errors.As(err, &te) || te.Stage != transport.StageData {
		t.Errorf("expected data stage error, got %v", err)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if New().Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", New().Name(), "stdout")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "small bytes", bytes: 512, want: "512 B"},
		{name: "kilobytes", bytes: 46080, want: "45.0 KB"},
		{name: "megabytes", bytes: 1258291, want: "1.2 MB"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatSize(tt.bytes); got != tt.want {
				t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
