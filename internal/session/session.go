// Package session owns the state of one interactive mailing session.
package session

import (
	"log/slog"

	"github.com/shineum/bulk-mailer/internal/registry"
)

// Context bundles the registries of a session. It is created at session
// start, reset on "reset application" and dropped at process exit.
type Context struct {
	Connections *registry.ConnectionRegistry
	Recipients  *registry.RecipientRegistry
	Message     *registry.MessageHolder
}

// New creates a context with empty registries.
func New() *Context {
	return &Context{
		Connections: registry.NewConnectionRegistry(),
		Recipients:  registry.NewRecipientRegistry(),
		Message:     registry.NewMessageHolder(),
	}
}

// Reset forgets every profile, recipient and the current message.
func (c *Context) Reset() {
	slog.Info("resetting session",
		"profiles", c.Connections.Len(),
		"recipients", c.Recipients.Len(),
		"message_loaded", c.Message.Current() != nil,
	)
	c.Connections.Clear()
	c.Recipients.Clear()
	c.Message.Clear()
}

// Status is a snapshot of the session for the status screen.
type Status struct {
	Profiles       int
	ActiveProfile  *registry.ServerProfile
	Recipients     int
	Addresses      int
	MessageSubject string
	MessageSource  string
	MessageLoaded  bool
}

// Status summarizes the current state.
func (c *Context) Status() Status {
	st := Status{
		Profiles:      c.Connections.Len(),
		ActiveProfile: c.Connections.Active(),
		Recipients:    c.Recipients.Len(),
	}
	for _, r := range c.Recipients.All() {
		st.Addresses += len(r.Addresses)
	}
	if msg := c.Message.Current(); msg != nil {
		st.MessageLoaded = true
		st.MessageSubject = msg.Subject
		st.MessageSource = c.Message.Source()
	}
	return st
}
