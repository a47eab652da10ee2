package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseStripsAddressing(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Cc: carol@example.com",
		"Bcc: dave@example.com",
		"Subject: Test Subject",
		"Message-Id: <test123@example.com>",
		"Content-Type: text/plain",
		"",
		"Hello, this is a plain text email.",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := msg.Header["From"]; ok {
		t.Errorf("From header should be stripped, got %v", msg.Header["From"])
	}
	for _, key := range []string{"To", "Cc", "Bcc"} {
		if _, ok := msg.Header[key]; ok {
			t.Errorf("%s header should be stripped, got %v", key, msg.Header[key])
		}
	}
	if got := msg.Header.Get("Message-Id"); got != "<test123@example.com>" {
		t.Errorf("Message-Id: got %q, want %q", got, "<test123@example.com>")
	}
	if msg.Subject != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", msg.Subject, "Test Subject")
	}
	if msg.TextBody != "Hello, this is a plain text email." {
		t.Errorf("TextBody: got %q, want %q", msg.TextBody, "Hello, this is a plain text email.")
	}
	if string(msg.Body) != "Hello, this is a plain text email." {
		t.Errorf("Body: got %q", string(msg.Body))
	}
}

func TestParsePlainFileBecomesBody(t *testing.T) {
	t.Parallel()

	raw := []byte("Dear all,\n\nthe meeting moves to Friday.\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(msg.Body) != string(raw) {
		t.Errorf("Body: got %q, want %q", string(msg.Body), string(raw))
	}
	if msg.TextBody != string(raw) {
		t.Errorf("TextBody: got %q, want %q", msg.TextBody, string(raw))
	}
	if got := msg.Header.Get("Content-Type"); got != "text/plain; charset=UTF-8" {
		t.Errorf("Content-Type: got %q", got)
	}
	if msg.Subject != "" {
		t.Errorf("Subject: got %q, want empty", msg.Subject)
	}
}

func TestParseEncodedSubject(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"Subject: =?UTF-8?Q?Gr=C3=BC=C3=9Fe?=",
		"",
		"body",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Grüße" {
		t.Errorf("Subject: got %q, want %q", msg.Subject, "Grüße")
	}
	if got := msg.Header.Get("Subject"); got != "=?UTF-8?Q?Gr=C3=BC=C3=9Fe?=" {
		t.Errorf("raw Subject header should be kept encoded, got %q", got)
	}
}

func TestParseMultipartTextAndHTML(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com, bob@example.com",
		"Subject: Multipart Test",
		"Content-Type: multipart/alternative; boundary=boundary123",
		"",
		"--boundary123",
		"Content-Type: text/plain",
		"",
		"Plain text body",
		"--boundary123",
		"Content-Type: text/html",
		"",
		"<html><body><p>HTML body</p></body></html>",
		"--boundary123--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.TextBody != "Plain text body" {
		t.Errorf("TextBody: got %q, want %q", msg.TextBody, "Plain text body")
	}
	if msg.HtmlBody != "<html><body><p>HTML body</p></body></html>" {
		t.Errorf("HtmlBody: got %q, want %q", msg.HtmlBody, "<html><body><p>HTML body</p></body></html>")
	}
	if !strings.Contains(string(msg.Body), "--boundary123--") {
		t.Error("Body should keep the raw multipart structure")
	}
}

func TestParseEmailWithAttachments(t *testing.T) {
	t.Parallel()

	raw := []byte("Subject: CRLF Base64\r\n" +
		"Content-Type: multipart/mixed; boundary=bound\r\n" +
		"\r\n" +
		"--bound\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n" +
		"--bound\r\n" +
		"Content-Type: application/pdf; name=\"file.pdf\"\r\n" +
		"Content-Disposition: attachment; filename=\"file.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"SGVs\r\n" +
		"bG8g\r\n" +
		"V29y\r\n" +
		"bGQ=\r\n" +
		"--bound\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment\r\n" +
		"\r\n" +
		"raw\r\n" +
		"--bound--\r\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msg.Attachments) != 2 {
		t.Fatalf("Attachments: got %d, want 2", len(msg.Attachments))
	}
	if att := msg.Attachments[0]; att.Filename != "file.pdf" || att.Size != len("Hello World") {
		t.Errorf("first attachment: got %+v", att)
	}
	if att := msg.Attachments[1]; att.Filename != "attachment.pdf" {
		t.Errorf("second attachment Filename: got %q, want %q", att.Filename, "attachment.pdf")
	}
}

func TestParseNestedMultipart(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"Subject: Nested Multipart",
		"Content-Type: multipart/mixed; boundary=outer",
		"",
		"--outer",
		"Content-Type: multipart/alternative; boundary=inner",
		"",
		"--inner",
		"Content-Type: text/plain",
		"",
		"Plain text part",
		"--inner",
		"Content-Type: text/html",
		"",
		"<p>HTML part</p>",
		"--inner--",
		"--outer",
		"Content-Type: application/octet-stream; name=\"data.bin\"",
		"Content-Disposition: attachment; filename=\"data.bin\"",
		"",
		"binarydata",
		"--outer--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.TextBody != "Plain text part" {
		t.Errorf("TextBody: got %q, want %q", msg.TextBody, "Plain text part")
	}
	if msg.HtmlBody != "<p>HTML part</p>" {
		t.Errorf("HtmlBody: got %q, want %q", msg.HtmlBody, "<p>HTML part</p>")
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "data.bin" {
		t.Errorf("Attachments: got %+v", msg.Attachments)
	}
}

func TestParseMultipartMissingBoundary(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"Subject: broken",
		"Content-Type: multipart/mixed",
		"",
		"some body",
	}, "\r\n"))

	if _, err := Parse(raw); err == nil {
		t.Error("expected error for multipart missing boundary, got nil")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "message.eml")
	content := "From: old@example.com\r\nSubject: Hello\r\n\r\nBody\r\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Run("loads and strips", func(t *testing.T) {
		t.Parallel()
		msg, err := LoadFile(path, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Subject != "Hello" {
			t.Errorf("Subject: got %q, want %q", msg.Subject, "Hello")
		}
		if msg.Header.Get("From") != "" {
			t.Error("From should be stripped")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadFile(filepath.Join(dir, "nope.eml"), 0); err == nil {
			t.Error("expected error for missing file, got nil")
		}
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFile(path, 8)
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})
}
