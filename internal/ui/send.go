package ui

import (
	"context"
	"errors"

	"github.com/shineum/bulk-mailer/internal/dispatch"
	"github.com/shineum/bulk-mailer/internal/navigation"
	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

func (u *UI) send(ctx context.Context) navigation.Action {
	u.screen("Send message")

	profile := u.sess.Connections.Active()
	msg := u.sess.Message.Current()
	recipients := u.sess.Recipients.All()

	if profile != nil {
		u.con.Printf("Server:      %s (%s)\n", profile.Name, profile.SMTP)
		u.con.Printf("From:        %s\n", profile.Sender)
	}
	if msg != nil {
		u.con.Printf("Subject:     %s\n", msg.Subject)
	}
	u.con.Printf("Recipients:  %d\n\n", len(recipients))

	ok, err := u.con.Confirm("Send the message now?", false)
	if err != nil {
		return u.fail(err)
	}
	if !ok {
		return nil
	}

	var creds *dispatch.Credentials
	if profile != nil && profile.SMTP.RequiresLogin && msg != nil && len(recipients) > 0 {
		if creds, err = u.askCredentials(profile.SMTP.Host); err != nil {
			return u.fail(err)
		}
	}

	u.con.Println()
	u.con.Infof("Sending through %s ...", u.pipeline.Transport())
	out, err := u.pipeline.Dispatch(ctx, dispatch.Request{
		Profile:     profile,
		Recipients:  recipients,
		Message:     msg,
		Credentials: creds,
		Progress: func(i int, rcpt registry.Recipient, refused map[string]transport.Reply) {
			if len(refused) == 0 {
				u.con.Printf("  [%d/%d] %s\n", i+1, len(recipients), rcpt.Name)
				return
			}
			u.con.Printf("  [%d/%d] %s (%d refused)\n", i+1, len(recipients), rcpt.Name, len(refused))
		},
	})
	if err != nil {
		u.preconditionFailed(err)
		return u.done()
	}

	u.con.Println()
	u.showOutcome(out)
	return u.done()
}

func (u *UI) askCredentials(host string) (*dispatch.Credentials, error) {
	user, err := u.con.Ask("User name for "+host, "")
	if err != nil {
		return nil, err
	}
	pass, err := u.con.Password("Password for " + host + ": ")
	if err != nil {
		return nil, err
	}
	return &dispatch.Credentials{Username: user, Password: pass}, nil
}

func (u *UI) preconditionFailed(err error) {
	switch {
	case errors.Is(err, dispatch.ErrNoActiveConnection):
		u.con.Errorf("There is no active server connection.")
	case errors.Is(err, dispatch.ErrNoMessage):
		u.con.Errorf("There is no message to send.")
	case errors.Is(err, dispatch.ErrNoRecipients):
		u.con.Errorf("The recipient list is empty.")
	default:
		u.con.Errorf("%v", err)
	}
}

func (u *UI) showOutcome(out dispatch.Outcome) {
	switch out.Kind {
	case dispatch.OK:
		u.con.Successf("%s", out)
	case dispatch.SMTPRecipientRefused:
		u.con.Warnf("%s: %d addresses refused", out.Kind, len(out.Refused))
		for _, addr := range out.RefusedAddresses() {
			u.con.Warnf("  %s: %s", addr, out.Refused[addr])
		}
	default:
		u.con.Errorf("%s", out)
		if errors.Is(out.Cause, transport.ErrInsecureAuth) {
			u.con.Infof("The server connection is not encrypted, so the password was not sent.\nChange the profile to SSL or STARTTLS to log in.")
		}
	}
}
