package ui

import (
	"context"
	"strings"

	"github.com/shineum/bulk-mailer/internal/navigation"
	"github.com/shineum/bulk-mailer/internal/parser"
)

const previewLines = 10

func (u *UI) messageMenu(_ context.Context) navigation.Action {
	return u.menu("Message", []menuEntry{
		{"Load message from file", navigation.ActionFunc(u.loadMessage)},
		{"Show message", navigation.ActionFunc(u.showMessage)},
		{"Clear message", navigation.ActionFunc(u.clearMessage)},
	}, "Back to main menu")
}

func (u *UI) loadMessage(_ context.Context) navigation.Action {
	u.screen("Load message")

	for {
		path, err := u.con.Ask("Message file", "")
		if err != nil {
			return u.fail(err)
		}
		if path == "" {
			return nil
		}

		msg, err := parser.LoadFile(path, u.maxSize)
		if err == nil {
			u.sess.Message.Set(msg, path)
			u.con.Successf("Message %q loaded.", msg.Subject)
			return u.done()
		}

		u.con.Errorf("Loading %s failed: %v", path, err)
		retry, err := u.con.Confirm("Try another file?", true)
		if err != nil {
			return u.fail(err)
		}
		if !retry {
			return nil
		}
	}
}

func (u *UI) showMessage(_ context.Context) navigation.Action {
	u.screen("Message")

	msg := u.sess.Message.Current()
	if msg == nil {
		u.con.Warnf("No message loaded.")
		return u.done()
	}

	u.con.Printf("Source:      %s\n", u.sess.Message.Source())
	u.con.Printf("Subject:     %s\n", msg.Subject)
	u.con.Printf("Size:        %d bytes\n", len(msg.Body))
	if msg.HtmlBody != "" {
		u.con.Printf("HTML part:   yes\n")
	}
	for _, a := range msg.Attachments {
		u.con.Printf("Attachment:  %s (%s, %d bytes)\n", a.Filename, a.ContentType, a.Size)
	}

	if text := strings.TrimSpace(msg.TextBody); text != "" {
		u.con.Println()
		lines := strings.Split(text, "\n")
		if len(lines) > previewLines {
			lines = append(lines[:previewLines], "...")
		}
		for _, l := range lines {
			u.con.Printf("  | %s\n", strings.TrimRight(l, "\r"))
		}
	}
	u.con.Println()
	return u.done()
}

func (u *UI) clearMessage(_ context.Context) navigation.Action {
	if u.sess.Message.Current() == nil {
		return nil
	}
	ok, err := u.con.Confirm("Drop the current message?", false)
	if err != nil {
		return u.fail(err)
	}
	if ok {
		u.sess.Message.Clear()
	}
	return nil
}
