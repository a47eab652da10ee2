// Package email defines the message model that is loaded once and sent to
// every recipient.
package email

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Addressing headers. They are never stored on a loaded message; every
// outgoing copy gets its own From and To. Cc and Bcc are dropped since
// each envelope only goes to the addresses in To.
const (
	HeaderFrom = "From"
	HeaderTo   = "To"
	HeaderCc   = "Cc"
	HeaderBcc  = "Bcc"
)

// AddressingHeaders lists the headers removed from a message at load time.
var AddressingHeaders = []string{HeaderFrom, HeaderTo, HeaderCc, HeaderBcc}

// Message is a loaded mail document. Header never contains addressing
// headers.
type Message struct {
	Header mail.Header
	Body   []byte

	// Summary fields extracted at load time, for display only.
	Subject     string
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	c := &Message{
		Header:      make(mail.Header, len(m.Header)),
		Body:        bytes.Clone(m.Body),
		Subject:     m.Subject,
		TextBody:    m.TextBody,
		HtmlBody:    m.HtmlBody,
		Attachments: append([]Attachment(nil), m.Attachments...),
	}
	for k, v := range m.Header {
		c.Header[k] = append([]string(nil), v...)
	}
	return c
}

// Addressed returns a fresh copy carrying its own From and To headers. All of
// to goes into one To header. A Date and a Message-Id are added when the
// loaded message has none.
func (m *Message) Addressed(from *mail.Address, to []*mail.Address) *Message {
	c := m.Clone()

	list := make([]string, 0, len(to))
	for _, a := range to {
		list = append(list, a.String())
	}
	c.Header[HeaderFrom] = []string{from.String()}
	c.Header[HeaderTo] = []string{strings.Join(list, ", ")}

	if _, ok := c.Header["Date"]; !ok {
		c.Header["Date"] = []string{time.Now().Format(time.RFC1123Z)}
	}
	if _, ok := c.Header["Message-Id"]; !ok {
		c.Header["Message-Id"] = []string{messageID(from.Address)}
	}
	return c
}

// WriteTo writes the message in wire format: From and To first, the remaining
// headers sorted by name, a blank line, then the body. Bcc is never written.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	for _, key := range []string{HeaderFrom, HeaderTo} {
		for _, v := range m.Header[key] {
			fmt.Fprintf(&buf, "%s: %s\r\n", key, v)
		}
	}

	keys := make([]string, 0, len(m.Header))
	for k := range m.Header {
		if k == HeaderFrom || k == HeaderTo || k == HeaderBcc {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range m.Header[k] {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")
	buf.Write(m.Body)

	return buf.WriteTo(w)
}

// Bytes returns the wire format of the message.
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = m.WriteTo(&buf)
	return buf.Bytes()
}

func messageID(sender string) string {
	domain := "localhost"
	if i := strings.LastIndexByte(sender, '@'); i >= 0 && i < len(sender)-1 {
		domain = sender[i+1:]
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}
