package registry

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrNoAddress is returned when a recipient would end up without an address.
var ErrNoAddress = errors.New("recipient needs at least one address")

// Recipient is a named destination with one or more addresses. All addresses
// of a recipient are delivered in a single envelope.
type Recipient struct {
	Name      string
	Addresses []string
}

// NewRecipient creates a recipient. At least one non-empty address is required.
func NewRecipient(name string, addresses ...string) (Recipient, error) {
	r := Recipient{Name: name}
	for _, a := range addresses {
		if err := r.AddAddress(a); err != nil {
			return Recipient{}, err
		}
	}
	if len(r.Addresses) == 0 {
		return Recipient{}, ErrNoAddress
	}
	return r, nil
}

// AddAddress appends an address.
func (r *Recipient) AddAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrNoAddress
	}
	r.Addresses = append(r.Addresses, address)
	return nil
}

// Formatted returns every address as "Name <address>".
func (r Recipient) Formatted() []string {
	out := make([]string, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		out = append(out, r.plain(a))
	}
	return out
}

// MailAddresses returns the addresses as header-ready values.
func (r Recipient) MailAddresses() []*mail.Address {
	out := make([]*mail.Address, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		out = append(out, r.address(a))
	}
	return out
}

// String shows only the first address.
func (r Recipient) String() string {
	if len(r.Addresses) == 0 {
		return r.Name
	}
	return r.plain(r.Addresses[0])
}

func (r Recipient) plain(a string) string {
	if r.Name == "" {
		return "<" + a + ">"
	}
	return r.Name + " <" + a + ">"
}

func (r Recipient) address(a string) *mail.Address {
	return &mail.Address{Name: r.Name, Address: a}
}

func (r Recipient) clone() Recipient {
	return Recipient{Name: r.Name, Addresses: append([]string(nil), r.Addresses...)}
}

// RecipientRegistry is the insertion-ordered recipient list. Two recipients
// may share an address; nothing is deduplicated.
type RecipientRegistry struct {
	recipients []Recipient
}

// NewRecipientRegistry returns an empty registry.
func NewRecipientRegistry() *RecipientRegistry {
	return &RecipientRegistry{}
}

// Len returns the number of recipients.
func (r *RecipientRegistry) Len() int {
	return len(r.recipients)
}

// Append adds a recipient at the end.
func (r *RecipientRegistry) Append(rcpt Recipient) error {
	if len(rcpt.Addresses) == 0 {
		return ErrNoAddress
	}
	r.recipients = append(r.recipients, rcpt.clone())
	return nil
}

// AddAddress appends an address to the recipient at index i.
func (r *RecipientRegistry) AddAddress(i int, address string) error {
	if i < 0 || i >= len(r.recipients) {
		return ErrIndexOutOfRange
	}
	return r.recipients[i].AddAddress(address)
}

// At returns a copy of the recipient at index i.
func (r *RecipientRegistry) At(i int) (Recipient, error) {
	if i < 0 || i >= len(r.recipients) {
		return Recipient{}, ErrIndexOutOfRange
	}
	return r.recipients[i].clone(), nil
}

// All returns copies of all recipients in order.
func (r *RecipientRegistry) All() []Recipient {
	out := make([]Recipient, 0, len(r.recipients))
	for _, rcpt := range r.recipients {
		out = append(out, rcpt.clone())
	}
	return out
}

// Delete removes the recipient at index i.
func (r *RecipientRegistry) Delete(i int) (Recipient, error) {
	if i < 0 || i >= len(r.recipients) {
		return Recipient{}, ErrIndexOutOfRange
	}
	removed := r.recipients[i]
	r.recipients = append(r.recipients[:i], r.recipients[i+1:]...)
	return removed, nil
}

// Extend appends every recipient of other.
func (r *RecipientRegistry) Extend(other *RecipientRegistry) {
	for _, rcpt := range other.recipients {
		r.recipients = append(r.recipients, rcpt.clone())
	}
}

// Clear removes every recipient.
func (r *RecipientRegistry) Clear() {
	r.recipients = nil
}
