package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/shineum/bulk-mailer/internal/addressbook"
	"github.com/shineum/bulk-mailer/internal/navigation"
	"github.com/shineum/bulk-mailer/internal/registry"
)

func (u *UI) recipientsMenu(_ context.Context) navigation.Action {
	return u.menu("Recipients", []menuEntry{
		{"View recipients", navigation.ActionFunc(u.listRecipients)},
		{"Add recipient", navigation.ActionFunc(u.addRecipient)},
		{"Add recipients from an address line", navigation.ActionFunc(u.addRecipientLine)},
		{"Load recipients from file", navigation.ActionFunc(u.loadRecipients)},
		{"Store recipients into file", navigation.ActionFunc(u.storeRecipients)},
		{"Clear recipients", navigation.ActionFunc(u.clearRecipients)},
	}, "Back to main menu")
}

func describeRecipient(r registry.Recipient) string {
	s := r.String()
	if extra := len(r.Addresses) - 1; extra > 0 {
		s += fmt.Sprintf(" (+%d more)", extra)
	}
	return s
}

func (u *UI) listRecipients(_ context.Context) navigation.Action {
	u.screen("Recipients")

	all := u.sess.Recipients.All()
	entries := make([]string, len(all))
	for i, r := range all {
		entries[i] = describeRecipient(r)
	}

	n, err := u.con.Pick("Recipient to change", entries)
	if err != nil {
		return u.fail(err)
	}
	if n < 0 {
		if len(entries) == 0 {
			return u.done()
		}
		return nil
	}
	return u.recipientMenu(n)
}

func (u *UI) recipientMenu(i int) navigation.Action {
	return navigation.ActionFunc(func(context.Context) navigation.Action {
		r, err := u.sess.Recipients.At(i)
		if err != nil {
			return nil
		}

		u.screen("Recipient " + r.Name)
		for _, line := range r.Formatted() {
			u.con.Printf("  %s\n", line)
		}
		u.con.Println()

		u.con.Printf("  1) Add address\n  2) Delete recipient\n  0) Back to recipient list\n")
		choice, err := u.con.AskInt("Select", -1, 0, 2)
		if err != nil {
			return u.fail(err)
		}

		switch choice {
		case 1:
			addr, err := u.con.Ask("New address", "")
			if err != nil {
				return u.fail(err)
			}
			if err := u.sess.Recipients.AddAddress(i, addr); err != nil {
				u.con.Errorf("%v", err)
				return u.done()
			}
			u.con.Successf("Address added to %s.", r.Name)
			return u.done()
		case 2:
			if _, err := u.sess.Recipients.Delete(i); err != nil {
				u.con.Errorf("%v", err)
				return u.done()
			}
			u.con.Successf("Recipient %s deleted.", r.Name)
			return u.done()
		}
		return nil
	})
}

func (u *UI) addRecipient(_ context.Context) navigation.Action {
	for {
		u.screen("New recipient")

		name, err := u.con.Ask("Display name (empty to cancel)", "")
		if err != nil {
			return u.fail(err)
		}
		if name == "" {
			return nil
		}

		var addrs []string
		for {
			prompt := "Address"
			if len(addrs) > 0 {
				prompt = "Another address (empty to finish)"
			}
			addr, err := u.con.Ask(prompt, "")
			if err != nil {
				return u.fail(err)
			}
			if addr == "" {
				break
			}
			addrs = append(addrs, addr)
		}

		rcpt, err := registry.NewRecipient(name, addrs...)
		if err == nil {
			err = u.sess.Recipients.Append(rcpt)
		}
		if err != nil {
			u.con.Errorf("Recipient not added: %v", err)
		} else {
			u.con.Successf("Recipient %s added.", name)
		}

		more, err := u.con.Confirm("Add another recipient?", false)
		if err != nil {
			return u.fail(err)
		}
		if !more {
			return nil
		}
	}
}

func (u *UI) addRecipientLine(_ context.Context) navigation.Action {
	u.screen("Add recipients")
	u.con.Println(`Enter addresses like: Jane Doe <jane@example.com>, "Doe, John" <john@example.com>`)
	u.con.Println()

	line, err := u.con.Ask("Addresses", "")
	if err != nil {
		return u.fail(err)
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	parsed, err := addressbook.ParseLine(line)
	if err != nil {
		u.con.Errorf("Not a valid address line: %v", err)
		return u.done()
	}
	u.sess.Recipients.Extend(parsed)
	u.con.Successf("%d recipients added.", parsed.Len())
	return u.done()
}

func (u *UI) loadRecipients(_ context.Context) navigation.Action {
	u.screen("Load recipients")

	path, err := u.con.Ask("Recipient file", "")
	if err != nil {
		return u.fail(err)
	}
	if path == "" {
		return nil
	}

	loaded, err := addressbook.Load(path)
	if err != nil {
		u.con.Errorf("Loading %s failed: %v", path, err)
		return u.done()
	}
	u.sess.Recipients.Extend(loaded)
	u.con.Successf("%d recipients loaded from %s.", loaded.Len(), path)
	return u.done()
}

func (u *UI) storeRecipients(_ context.Context) navigation.Action {
	u.screen("Store recipients")

	if u.sess.Recipients.Len() == 0 {
		u.con.Warnf("The recipient list is empty.")
		return u.done()
	}

	path, err := u.con.Ask("Target file", "")
	if err != nil {
		return u.fail(err)
	}
	if path == "" {
		return nil
	}
	if err := addressbook.Save(path, u.sess.Recipients); err != nil {
		u.con.Errorf("Storing recipients failed: %v", err)
		return u.done()
	}
	u.con.Successf("%d recipients stored in %s.", u.sess.Recipients.Len(), path)
	return u.done()
}

func (u *UI) clearRecipients(_ context.Context) navigation.Action {
	ok, err := u.con.Confirm("Remove all recipients?", false)
	if err != nil {
		return u.fail(err)
	}
	if ok {
		u.sess.Recipients.Clear()
	}
	return nil
}
