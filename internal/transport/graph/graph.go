// Package graph implements a Transport that submits messages through the
// Microsoft Graph sendMail API. The MIME document is uploaded as is, so
// Graph takes the recipients from its To header.
package graph

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/bulk-mailer/internal/registry"
	"github.com/shineum/bulk-mailer/internal/transport"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Config holds the app registration used for client-credentials login.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Transport sends through Microsoft Graph on behalf of the profile sender.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	tokens     *tokenSource
}

// New creates a Graph Transport.
func New(cfg Config) *Transport {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	return newWithURLs(cfg, defaultBaseURL, tokenURL)
}

func newWithURLs(cfg Config, baseURL, tokenURL string) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	return &Transport{
		baseURL:    baseURL,
		httpClient: client,
		tokens:     newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "msgraph"
}

// Dial returns a session. Graph is reached over HTTPS regardless of the
// profile endpoint.
func (t *Transport) Dial(_ context.Context, ep registry.Endpoint) (transport.Session, error) {
	slog.Debug("using Microsoft Graph instead of profile endpoint", "endpoint", ep.Addr())
	return &session{t: t}, nil
}

type session struct {
	t *Transport
}

func (s *session) Hello(context.Context) error    { return nil }
func (s *session) StartTLS(context.Context) error { return nil }

func (s *session) Auth(context.Context, string, string) error {
	slog.Debug("Graph uses the app registration, ignoring login")
	return nil
}

func (s *session) Close() error { return nil }

// Send uploads data as a base64 MIME message for the mailbox of from.
func (s *session) Send(ctx context.Context, from string, to []string, data []byte) (map[string]transport.Reply, error) {
	token, err := s.t.tokens.Token(ctx)
	if err != nil {
		return nil, &transport.Error{Stage: transport.StageAuth, Err: err}
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", s.t.baseURL, url.PathEscape(from))
	body := []byte(base64.StdEncoding.EncodeToString(data))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &transport.Error{Stage: transport.StageData, Err: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.t.httpClient.Do(req)
	if err != nil {
		return nil, &transport.Error{Stage: transport.StageData, Err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		slog.Debug("Graph accepted message", "recipients", len(to))
		return map[string]transport.Reply{}, nil
	}

	raw, _ := io.ReadAll(resp.Body)
	return classify(resp.StatusCode, raw, to)
}

// classify maps a failed sendMail response. A 400 refuses every address of
// the envelope; 401 and 403 mean the sender mailbox may not be used.
func classify(status int, body []byte, to []string) (map[string]transport.Reply, error) {
	msg := string(body)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		msg = er.Error.Code + ": " + er.Error.Message
	}

	switch {
	case status == http.StatusBadRequest:
		reply := transport.Reply{Code: 550, Message: msg}
		refused := make(map[string]transport.Reply, len(to))
		for _, addr := range to {
			refused[addr] = reply
		}
		return refused, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, &transport.Error{Stage: transport.StageMail, Code: 553, Message: msg}
	default:
		return nil, &transport.Error{
			Stage:   transport.StageData,
			Code:    554,
			Message: fmt.Sprintf("Graph API error (HTTP %d): %s", status, msg),
		}
	}
}
