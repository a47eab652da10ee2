package registry

import "github.com/shineum/bulk-mailer/internal/email"

// MessageHolder keeps the single current message of a session.
type MessageHolder struct {
	msg    *email.Message
	source string
}

// NewMessageHolder returns an empty holder.
func NewMessageHolder() *MessageHolder {
	return &MessageHolder{}
}

// Set replaces the current message. source is the file it was loaded from.
func (h *MessageHolder) Set(msg *email.Message, source string) {
	h.msg = msg
	h.source = source
}

// Current returns the current message, or nil.
func (h *MessageHolder) Current() *email.Message {
	return h.msg
}

// Source returns the path the current message was loaded from.
func (h *MessageHolder) Source() string {
	return h.source
}

// Clear drops the current message.
func (h *MessageHolder) Clear() {
	h.msg = nil
	h.source = ""
}
