package biotime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

const tokenPath = "/jwt-api-token-auth/"

// defaultTokenLifetime applies when the issued token carries no readable exp claim.
const defaultTokenLifetime = 30 * time.Minute

// jwtTokenSource obtains tokens from the JWT login endpoint. Tokens use the "JWT"
// authorization scheme the remote API expects.
type jwtTokenSource struct {
	ctx      context.Context
	http     *http.Client
	url      string
	username string
	password string
}

// newTokenSource wraps the JWT login in an oauth2.ReuseTokenSource so a token is reused
// until shortly before it expires.
func newTokenSource(ctx context.Context, httpClient *http.Client, baseURL, username, password string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &jwtTokenSource{
		ctx:      ctx,
		http:     httpClient,
		url:      baseURL + tokenPath,
		username: username,
		password: password,
	})
}

// Token implements oauth2.TokenSource.
func (s *jwtTokenSource) Token() (*oauth2.Token, error) {
	body, err := json.Marshal(map[string]string{"username": s.username, "password": s.password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token request: %v", source.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: token request returned %d", source.ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: token request returned %d", source.ErrTransient, resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: token response: %v", source.ErrBadPayload, err)
	}
	if payload.Token == "" {
		return nil, fmt.Errorf("%w: token response has no token", source.ErrBadPayload)
	}

	slog.Info("JWT token obtained successfully")
	return &oauth2.Token{
		AccessToken: payload.Token,
		TokenType:   "JWT",
		Expiry:      tokenExpiry(payload.Token),
	}, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token is only
// forwarded to its issuer, never trusted locally.
func tokenExpiry(raw string) time.Time {
	tok, err := jwt.ParseString(raw, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil || tok.Expiration().IsZero() {
		return time.Now().Add(defaultTokenLifetime)
	}
	return tok.Expiration()
}
