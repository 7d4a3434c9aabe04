package indieauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single introspection call.
const DefaultTimeout = 10 * time.Second

const maxResponseSize = 1 << 20

// ErrIdentityMismatch is returned when a token is valid for someone else.
var ErrIdentityMismatch = errors.New("token identity does not match the site owner")

// TokenInfo is the introspection payload for an accepted token.
type TokenInfo struct {
	Me       string
	ClientID string
	Scope    string
	Raw      map[string]any
}

// Scopes returns the space-separated scopes granted to the token.
func (t *TokenInfo) Scopes() []string {
	return strings.Fields(t.Scope)
}

// Verifier checks bearer tokens against a token introspection endpoint.
type Verifier struct {
	client   *http.Client
	endpoint string
	me       string
}

// NewVerifier creates a Verifier that accepts tokens issued to me. A nil
// client gets one with DefaultTimeout.
func NewVerifier(client *http.Client, endpoint string, me string) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Verifier{client: client, endpoint: endpoint, me: me}
}

// Verify introspects token. Any transport failure, non-2xx status, non-JSON
// body or identity mismatch rejects the token with a forbidden error; the
// upstream detail is logged, not returned.
func (v *Verifier) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindUpstreamAuthFailure, "token endpoint is misconfigured")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	info, err := v.introspect(req)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", v.endpoint).Msg("Rejected access token")
		return nil, domain.NewError(domain.KindForbidden, "Invalid authorization token")
	}
	return info, nil
}

func (v *Verifier) introspect(req *http.Request) (*TokenInfo, error) {
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("introspection returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading introspection response: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding introspection response: %w", err)
	}

	info := &TokenInfo{Raw: raw}
	info.Me, _ = raw["me"].(string)
	info.ClientID, _ = raw["client_id"].(string)
	info.Scope, _ = raw["scope"].(string)

	if !URLEqual(info.Me, v.me) {
		return nil, fmt.Errorf("%w: got %q", ErrIdentityMismatch, info.Me)
	}
	return info, nil
}
