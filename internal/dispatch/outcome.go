package dispatch

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/shineum/bulk-mailer/internal/transport"
)

// Kind is the closed set of dispatch results.
type Kind int

// Outcome kinds.
const (
	OK Kind = iota
	SMTPGenericError
	SMTPMissingLoginData
	SMTPHelo
	SMTPSenderRefused
	SMTPRecipientRefused
)

var kindNames = map[Kind]string{
	OK:                   "OK",
	SMTPGenericError:     "SMTP_GENERIC_ERROR",
	SMTPMissingLoginData: "SMTP_MISSING_LOGIN_DATA",
	SMTPHelo:             "SMTP_HELO",
	SMTPSenderRefused:    "SMTP_SENDER_REFUSED",
	SMTPRecipientRefused: "SMTP_RECIPIENT_REFUSED",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the single result of one dispatch attempt. Code is the server
// reply code behind the result, or zero when there was none. Refused is only
// set for SMTPRecipientRefused and maps each refused address to its reply.
// Cause is the transport failure behind an aborted attempt.
type Outcome struct {
	Kind    Kind
	Code    int
	Detail  string
	Refused map[string]transport.Reply
	Cause   error
}

// String renders the outcome for logs and the result screen.
func (o Outcome) String() string {
	switch {
	case o.Code != 0 && o.Detail != "":
		return fmt.Sprintf("%s (%d): %s", o.Kind, o.Code, o.Detail)
	case o.Detail != "":
		return fmt.Sprintf("%s: %s", o.Kind, o.Detail)
	default:
		return o.Kind.String()
	}
}

// RefusedAddresses returns the refused addresses in sorted order.
func (o Outcome) RefusedAddresses() []string {
	addrs := lo.Keys(o.Refused)
	slices.Sort(addrs)
	return addrs
}

// refusedOutcome builds the SMTPRecipientRefused result. Detail is the
// refused map as JSON; Code is the reply of the first address in sort order.
func refusedOutcome(refused map[string]transport.Reply) Outcome {
	o := Outcome{Kind: SMTPRecipientRefused, Refused: refused}

	if addrs := o.RefusedAddresses(); len(addrs) > 0 {
		o.Code = refused[addrs[0]].Code
	}

	detail, err := json.Marshal(refused)
	if err != nil {
		o.Detail = fmt.Sprintf("%v", refused)
	} else {
		o.Detail = string(detail)
	}
	return o
}
