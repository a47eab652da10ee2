// Package parser loads message files. A file that parses as an RFC 5322
// document keeps its headers and MIME structure; anything else becomes a
// plain text body. From and To are always removed, they are set per recipient
// at send time.
package parser

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"strings"

	"github.com/shineum/bulk-mailer/internal/email"
)

// ErrTooLarge is returned by LoadFile for files above the size limit.
var ErrTooLarge = errors.New("message file too large")

// LoadFile reads and parses the message file at path. A maxSize of zero or
// less disables the size check.
func LoadFile(path string, maxSize int64) (*email.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message file: %w", err)
	}
	if maxSize > 0 && int64(len(raw)) > maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxSize)
	}

	return Parse(raw)
}

// Parse turns raw file content into a Message.
func Parse(raw []byte) (*email.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		slog.Debug("content is not a mail document, using it as plain text body", "error", err)
		return plainText(raw), nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	result := &email.Message{
		Header: make(mail.Header, len(msg.Header)),
		Body:   body,
	}
	for key, values := range msg.Header {
		result.Header[key] = values
	}
	for _, key := range email.AddressingHeaders {
		delete(result.Header, key)
	}

	result.Subject = decodeHeader(msg.Header.Get("Subject"))

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		result.TextBody = string(body)
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(bytes.NewReader(body), boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	switch mediaType {
	case "text/html":
		result.HtmlBody = string(body)
	default:
		result.TextBody = string(body)
	}
	return result, nil
}

// plainText wraps content that has no header block.
func plainText(raw []byte) *email.Message {
	return &email.Message{
		Header: mail.Header{
			"Mime-Version":              {"1.0"},
			"Content-Type":              {"text/plain; charset=UTF-8"},
			"Content-Transfer-Encoding": {"8bit"},
		},
		Body:     bytes.Clone(raw),
		TextBody: string(raw),
	}
}

// parseMultipart walks a multipart body and fills the summary fields.
func parseMultipart(body io.Reader, boundary string, result *email.Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			nested := params["boundary"]
			if nested == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nested, result); err != nil {
				slog.Warn("failed to parse nested multipart", "error", err)
			}
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		disposition := part.Header.Get("Content-Disposition")
		if strings.HasPrefix(disposition, "attachment") || part.FileName() != "" || params["name"] != "" {
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    extractFilename(part, params, mediaType),
				ContentType: mediaType,
				Size:        len(content),
			})
			continue
		}

		switch mediaType {
		case "text/plain":
			if result.TextBody == "" {
				result.TextBody = string(content)
			}
		case "text/html":
			if result.HtmlBody == "" {
				result.HtmlBody = string(content)
			}
		default:
			slog.Warn("unrecognized MIME part, skipping",
				"content_type", mediaType,
				"disposition", disposition,
			)
		}
	}

	return nil
}

// readPartContent reads a MIME part, decoding base64 transfer encoding.
// Quoted-printable is decoded by the multipart reader itself.
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Transfer-Encoding")))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	if encoding != "base64" {
		return raw, nil
	}

	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
	}
	return decoded, nil
}

func extractFilename(part *multipart.Part, params map[string]string, mediaType string) string {
	if fn := part.FileName(); fn != "" {
		return fn
	}
	if name := params["name"]; name != "" {
		return name
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok {
		return "attachment." + sub
	}
	return "attachment"
}

func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
