package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/registry"
)

func seeded(t *testing.T) *Context {
	t.Helper()

	c := New()
	require.NoError(t, c.Connections.Append(registry.ServerProfile{
		Name:   "office",
		SMTP:   registry.Endpoint{Host: "smtp.example.com", Port: 25},
		Sender: registry.Sender{Address: "me@example.com"},
	}, true))

	ann, err := registry.NewRecipient("Ann", "a@example.com", "a2@example.com")
	require.NoError(t, err)
	require.NoError(t, c.Recipients.Append(ann))

	c.Message.Set(&email.Message{Subject: "Hello"}, "hello.eml")
	return c
}

func TestStatus(t *testing.T) {
	t.Parallel()

	st := seeded(t).Status()
	assert.Equal(t, 1, st.Profiles)
	require.NotNil(t, st.ActiveProfile)
	assert.Equal(t, "office", st.ActiveProfile.Name)
	assert.Equal(t, 1, st.Recipients)
	assert.Equal(t, 2, st.Addresses)
	assert.True(t, st.MessageLoaded)
	assert.Equal(t, "Hello", st.MessageSubject)
	assert.Equal(t, "hello.eml", st.MessageSource)
}

func TestResetClearsEverything(t *testing.T) {
	t.Parallel()

	c := seeded(t)
	c.Reset()

	assert.Equal(t, Status{}, c.Status())
	assert.Equal(t, registry.NoActive, c.Connections.ActiveIndex())
}
