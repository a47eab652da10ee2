package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/shineum/bulk-mailer/internal/navigation"
	"github.com/shineum/bulk-mailer/internal/registry"
)

var encryptionChoices = []registry.Encryption{
	registry.EncryptionNone,
	registry.EncryptionSSL,
	registry.EncryptionSTARTTLS,
}

func defaultPort(enc registry.Encryption, imap bool) int {
	switch {
	case imap && enc == registry.EncryptionSSL:
		return 993
	case imap:
		return 143
	case enc == registry.EncryptionSSL:
		return 465
	case enc == registry.EncryptionSTARTTLS:
		return 587
	default:
		return 25
	}
}

func (u *UI) serverMenu(_ context.Context) navigation.Action {
	return u.menu("Server connections", []menuEntry{
		{"View server profiles", navigation.ActionFunc(u.listProfiles)},
		{"Add server profile", navigation.ActionFunc(u.addProfile)},
	}, "Back to main menu")
}

func describeProfile(p registry.ServerProfile, active bool) string {
	var b strings.Builder
	if active {
		b.WriteString("[Active] ")
	}
	b.WriteString(p.Name)
	b.WriteString("\n       SMTP " + p.SMTP.String())
	if p.IMAP != nil {
		b.WriteString("\n       IMAP " + p.IMAP.String())
	}
	b.WriteString("\n       From " + p.Sender.String())
	return b.String()
}

func (u *UI) listProfiles(_ context.Context) navigation.Action {
	u.screen("Server profiles")

	conns := u.sess.Connections
	entries := make([]string, 0, conns.Len())
	for i, p := range conns.All() {
		entries = append(entries, describeProfile(p, i == conns.ActiveIndex()))
	}

	n, err := u.con.Pick("Profile to change", entries)
	if err != nil {
		return u.fail(err)
	}
	if n < 0 {
		if len(entries) == 0 {
			return u.done()
		}
		return nil
	}
	return u.profileMenu(conns.All()[n].Name)
}

// profileIndex finds a profile by name. Profiles are addressed by name
// across screens because deleting one shifts the indexes of the rest.
func (u *UI) profileIndex(name string) int {
	for i, p := range u.sess.Connections.All() {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (u *UI) profileMenu(name string) navigation.Action {
	return navigation.ActionFunc(func(context.Context) navigation.Action {
		if u.profileIndex(name) < 0 {
			return nil
		}
		return u.menu("Profile "+name, []menuEntry{
			{"Set as active profile", navigation.ActionFunc(func(context.Context) navigation.Action {
				return u.activateProfile(name)
			})},
			{"Edit profile", navigation.ActionFunc(func(context.Context) navigation.Action {
				return u.editProfile(name)
			})},
			{"Delete profile", navigation.ActionFunc(func(context.Context) navigation.Action {
				return u.deleteProfile(name)
			})},
		}, "Back to profile list")
	})
}

func (u *UI) activateProfile(name string) navigation.Action {
	if err := u.sess.Connections.SetActive(u.profileIndex(name)); err != nil {
		u.con.Errorf("%v", err)
		return u.done()
	}
	u.saveProfiles()
	u.con.Successf("Profile %q is now active.", name)
	return u.done()
}

func (u *UI) deleteProfile(name string) navigation.Action {
	ok, err := u.con.Confirm(fmt.Sprintf("Delete profile %q?", name), false)
	if err != nil {
		return u.fail(err)
	}
	if !ok {
		return nil
	}
	if _, err := u.sess.Connections.Delete(u.profileIndex(name)); err != nil {
		u.con.Errorf("%v", err)
		return u.done()
	}
	u.saveProfiles()
	u.con.Successf("Profile %q deleted.", name)
	return u.done()
}

func (u *UI) addProfile(_ context.Context) navigation.Action {
	u.screen("New server profile")

	base := registry.ServerProfile{
		Name: fmt.Sprintf("Server %d", u.sess.Connections.Len()+1),
		SMTP: registry.Endpoint{Port: 25},
	}
	p, err := u.askProfile(base)
	if err != nil {
		return u.fail(err)
	}
	active, err := u.con.Confirm("Make this the active profile?", true)
	if err != nil {
		return u.fail(err)
	}

	if err := u.sess.Connections.Append(p, active); err != nil {
		u.con.Errorf("Profile not added: %v", err)
		return u.done()
	}
	u.saveProfiles()
	u.con.Successf("Profile %q added.", p.Name)
	return u.done()
}

func (u *UI) editProfile(name string) navigation.Action {
	i := u.profileIndex(name)
	cur, err := u.sess.Connections.At(i)
	if err != nil {
		return nil
	}
	u.screen("Edit server profile")

	p, err := u.askProfile(cur)
	if err != nil {
		return u.fail(err)
	}
	if err := u.sess.Connections.Update(i, p); err != nil {
		u.con.Errorf("Profile not changed: %v", err)
		return u.done()
	}
	u.saveProfiles()
	u.con.Successf("Profile %q saved.", p.Name)
	return u.done()
}

// askProfile runs the profile wizard with the values of base as defaults.
func (u *UI) askProfile(base registry.ServerProfile) (registry.ServerProfile, error) {
	var (
		p   = registry.ServerProfile{}
		err error
	)

	if p.Name, err = u.con.AskRequired("Profile name", base.Name); err != nil {
		return p, err
	}
	if p.SMTP, err = u.askEndpoint("SMTP", base.SMTP, false); err != nil {
		return p, err
	}

	wantIMAP, err := u.con.Confirm("Add an IMAP server?", base.IMAP != nil)
	if err != nil {
		return p, err
	}
	if wantIMAP {
		imapBase := registry.Endpoint{Host: p.SMTP.Host, Port: 993, Encryption: registry.EncryptionSSL}
		if base.IMAP != nil {
			imapBase = *base.IMAP
		}
		imap, err := u.askEndpoint("IMAP", imapBase, true)
		if err != nil {
			return p, err
		}
		p.IMAP = &imap

		if p.SMTP.RequiresLogin && imap.RequiresLogin {
			if p.ShareLogin, err = u.con.Confirm("Use the same login for SMTP and IMAP?", true); err != nil {
				return p, err
			}
		}
	}

	if p.Sender.DisplayName, err = u.con.Ask("Sender display name", base.Sender.DisplayName); err != nil {
		return p, err
	}
	if p.Sender.Address, err = u.con.AskRequired("Sender address", base.Sender.Address); err != nil {
		return p, err
	}
	return p, nil
}

func (u *UI) askEndpoint(kind string, base registry.Endpoint, imap bool) (registry.Endpoint, error) {
	var (
		ep  registry.Endpoint
		err error
	)

	if ep.Host, err = u.con.AskRequired(kind+" host", base.Host); err != nil {
		return ep, err
	}

	u.con.Printf("%s encryption:\n", kind)
	for i, enc := range encryptionChoices {
		u.con.Printf("  %d) %s\n", i+1, enc)
	}
	choice, err := u.con.AskInt("Select", int(base.Encryption)+1, 1, len(encryptionChoices))
	if err != nil {
		return ep, err
	}
	ep.Encryption = encryptionChoices[choice-1]

	port := base.Port
	if port == 0 || ep.Encryption != base.Encryption {
		port = defaultPort(ep.Encryption, imap)
	}
	if ep.Port, err = u.con.AskInt(kind+" port", port, 1, 65535); err != nil {
		return ep, err
	}

	ep.RequiresLogin, err = u.con.Confirm(fmt.Sprintf("Does the %s server require login?", kind), base.RequiresLogin)
	return ep, err
}
