// Package addressbook reads and writes recipient list files.
//
// A file holds one or more address-list entries per line in the usual
// "Display Name <local@domain>" syntax. Entries sharing a display name are
// merged into one recipient, in the order names first appear.
package addressbook

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/shineum/bulk-mailer/internal/registry"
)

type entry struct {
	name    string
	address string
}

// Load parses the file at path into a new registry. It fails only if the file
// cannot be read; a file without usable entries gives an empty registry.
func Load(path string) (*registry.RecipientRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients file: %w", err)
	}

	var entries []entry
	for i, raw := range bytes.Split(data, []byte("\n")) {
		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed, err := parseLine(line)
		if err != nil {
			slog.Warn("skipping unparseable recipients line",
				"path", path,
				"line", i+1,
				"error", err,
			)
			continue
		}
		entries = append(entries, parsed...)
	}

	reg := group(entries)
	slog.Info("loaded recipients file",
		"path", path,
		"recipients", reg.Len(),
		"addresses", len(entries),
	)
	return reg, nil
}

// ParseLine parses a single address-list entry such as a command line value.
func ParseLine(line string) (*registry.RecipientRegistry, error) {
	entries, err := parseLine(line)
	if err != nil {
		return nil, err
	}
	return group(entries), nil
}

// Save writes reg to path, one "Name <address>" line per address.
func Save(path string, reg *registry.RecipientRegistry) error {
	var buf bytes.Buffer
	for _, r := range reg.All() {
		for _, line := range r.Formatted() {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write recipients file: %w", err)
	}
	return nil
}

func parseLine(line string) ([]entry, error) {
	addrs, err := mail.ParseAddressList(line)
	if err != nil {
		return nil, err
	}
	return lo.Map(addrs, func(a *mail.Address, _ int) entry {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = a.Address
		}
		return entry{name: name, address: a.Address}
	}), nil
}

// group merges entries by display name. Names keep their first-seen order and
// addresses keep file order; the same address under two names stays twice.
func group(entries []entry) *registry.RecipientRegistry {
	names := lo.Uniq(lo.Map(entries, func(e entry, _ int) string { return e.name }))
	byName := lo.GroupBy(entries, func(e entry) string { return e.name })

	reg := registry.NewRecipientRegistry()
	for _, name := range names {
		addrs := lo.Map(byName[name], func(e entry, _ int) string { return e.address })
		rcpt, err := registry.NewRecipient(name, addrs...)
		if err != nil {
			continue
		}
		_ = reg.Append(rcpt)
	}
	return reg
}
