package dispatch

import (
	"context"

	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

type sent struct {
	from string
	to   []string
	data []byte
}

// fakeTransport hands out one fakeSession per Dial and records the calls.
type fakeTransport struct {
	dialErr error
	// refuse maps an address to the reply it is refused with.
	refuse  map[string]transport.Reply
	errs    map[string]error
	sendErr map[int]error

	dials    int
	calls    []string
	sends    []sent
	closed   int
	deadline bool
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Dial(ctx context.Context, _ registry.Endpoint) (transport.Session, error) {
	f.dials++
	_, f.deadline = ctx.Deadline()
	f.calls = append(f.calls, "dial")
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return &fakeSession{t: f}, nil
}

type fakeSession struct {
	t *fakeTransport
}

func (s *fakeSession) step(name string) error {
	s.t.calls = append(s.t.calls, name)
	return s.t.errs[name]
}

func (s *fakeSession) Hello(context.Context) error    { return s.step("hello") }
func (s *fakeSession) StartTLS(context.Context) error { return s.step("starttls") }

func (s *fakeSession) Auth(_ context.Context, username, password string) error {
	return s.step("auth:" + username + ":" + password)
}

func (s *fakeSession) Send(_ context.Context, from string, to []string, data []byte) (map[string]transport.Reply, error) {
	s.t.calls = append(s.t.calls, "send")
	idx := len(s.t.sends)
	s.t.sends = append(s.t.sends, sent{from: from, to: to, data: data})

	if err := s.t.sendErr[idx]; err != nil {
		return nil, err
	}
	refused := make(map[string]transport.Reply)
	for _, a := range to {
		if r, ok := s.t.refuse[a]; ok {
			refused[a] = r
		}
	}
	return refused, nil
}

func (s *fakeSession) Close() error {
	s.t.calls = append(s.t.calls, "close")
	s.t.closed++
	return nil
}
