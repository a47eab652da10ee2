package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpiryBuffer is subtracted from the token lifetime so a token is not
// used right before it expires.
const tokenExpiryBuffer = 5 * time.Minute

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// tokenSource caches an OAuth2 client-credentials access token.
type tokenSource struct {
	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time

	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
}

func newTokenSource(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        "https://graph.microsoft.com/.default",
		httpClient:   httpClient,
	}
}

// Token returns a cached token or requests a new one.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && time.Now().Before(ts.expiresAt) {
		return ts.accessToken, nil
	}

	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.clientID},
		"client_secret": {ts.clientSecret},
		"scope":         {ts.scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ts.accessToken = tr.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryBuffer)
	return ts.accessToken, nil
}
