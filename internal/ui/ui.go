// Package ui is the interactive menu graph of the bulk mailer. Every screen
// is a navigation.Action: menus return the chosen screen, leaf screens return
// nil to go back to whoever opened them.
package ui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shineum/bulk-mailer/internal/console"
	"github.com/shineum/bulk-mailer/internal/dispatch"
	"github.com/shineum/bulk-mailer/internal/navigation"
	"github.com/shineum/bulk-mailer/internal/session"
	"github.com/shineum/bulk-mailer/internal/store"
)

// Config wires the UI to the rest of the application.
type Config struct {
	Console  *console.Console
	Session  *session.Context
	Store    *store.Store
	Pipeline *dispatch.Pipeline

	// MaxMessageSize caps message files. Zero disables the check.
	MaxMessageSize int64
}

// UI owns the screens of one interactive session.
type UI struct {
	con      *console.Console
	sess     *session.Context
	store    *store.Store
	pipeline *dispatch.Pipeline
	maxSize  int64
}

// New creates the UI.
func New(cfg Config) *UI {
	return &UI{
		con:      cfg.Console,
		sess:     cfg.Session,
		store:    cfg.Store,
		pipeline: cfg.Pipeline,
		maxSize:  cfg.MaxMessageSize,
	}
}

// Root returns the main menu.
func (u *UI) Root() navigation.Action {
	return navigation.ActionFunc(u.mainMenu)
}

type menuEntry struct {
	label  string
	action navigation.Action
}

// menu shows entries and returns the chosen action. back names the entry
// that returns nil; an empty back hides it.
func (u *UI) menu(title string, entries []menuEntry, back string) navigation.Action {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}
	n, err := u.con.Menu(title, labels, back)
	if err != nil {
		return u.fail(err)
	}
	if n == console.Back {
		return nil
	}
	return entries[n].action
}

func (u *UI) mainMenu(_ context.Context) navigation.Action {
	return u.menu("Main menu", []menuEntry{
		{"Manage server connections", navigation.ActionFunc(u.serverMenu)},
		{"Manage recipients", navigation.ActionFunc(u.recipientsMenu)},
		{"Manage message", navigation.ActionFunc(u.messageMenu)},
		{"Show status", navigation.ActionFunc(u.status)},
		{"Send message", navigation.ActionFunc(u.send)},
		{"Reset application", navigation.ActionFunc(u.reset)},
		{"Exit", navigation.Exit},
	}, "")
}

// fail handles an input error. A closed input ends the session.
func (u *UI) fail(err error) navigation.Action {
	if errors.Is(err, console.ErrClosed) {
		slog.Info("input closed, leaving")
		return navigation.Exit
	}
	u.con.Errorf("%v", err)
	return nil
}

// done waits for Enter and returns to the caller.
func (u *UI) done() navigation.Action {
	if err := u.con.Pause(); err != nil {
		return u.fail(err)
	}
	return nil
}

// screen clears the console and prints a heading.
func (u *UI) screen(title string) {
	u.con.Clear()
	u.con.Title(title)
}

func (u *UI) saveProfiles() {
	if u.store == nil {
		return
	}
	if err := u.store.Save(u.sess.Connections); err != nil {
		slog.Error("failed to save profiles", "error", err)
		u.con.Errorf("Saving profiles failed: %v", err)
	}
}

func (u *UI) status(_ context.Context) navigation.Action {
	u.screen("Status")

	st := u.sess.Status()
	active := "none"
	if st.ActiveProfile != nil {
		active = st.ActiveProfile.Name + " (" + st.ActiveProfile.SMTP.String() + ")"
	}
	u.con.Printf("Server profiles:  %d\n", st.Profiles)
	u.con.Printf("Active profile:   %s\n", active)
	u.con.Printf("Recipients:       %d (%d addresses)\n", st.Recipients, st.Addresses)
	if st.MessageLoaded {
		u.con.Printf("Message:          %q from %s\n", st.MessageSubject, st.MessageSource)
	} else {
		u.con.Printf("Message:          none\n")
	}
	if u.pipeline != nil {
		u.con.Printf("Transport:        %s\n", u.pipeline.Transport())
	}
	u.con.Println()
	return u.done()
}

func (u *UI) reset(_ context.Context) navigation.Action {
	u.screen("Reset application")

	ok, err := u.con.Confirm("Delete all server profiles, recipients and the message?", false)
	if err != nil {
		return u.fail(err)
	}
	if !ok {
		return nil
	}
	u.sess.Reset()
	u.con.Successf("Application reset.")
	return u.done()
}
