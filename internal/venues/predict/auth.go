package predict

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// expirySlack refreshes tokens slightly before the venue would reject
// them, so an order never rides an almost-dead token.
const expirySlack = 30 * time.Second

type session struct {
	mu      sync.RWMutex
	jwt     string
	expires time.Time
}

// token returns the current JWT, or empty when missing or near expiry.
func (s *session) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.jwt == "" || time.Now().After(s.expires.Add(-expirySlack)) {
		return ""
	}

	return s.jwt
}

func (s *session) set(token string, expires time.Time) {
	s.mu.Lock()
	s.jwt = token
	s.expires = expires
	s.mu.Unlock()
}

// Authenticate obtains a session token when the current one is missing
// or about to expire. Idempotent and safe for concurrent use.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.session.token() != "" {
		return nil
	}

	return c.refreshToken(ctx)
}

// refreshToken runs the challenge-sign-exchange flow. Concurrent
// callers share a single in-flight refresh.
func (c *Client) refreshToken(ctx context.Context) error {
	_, err, _ := c.authGroup.Do("token", func() (any, error) {
		if err := c.exchangeToken(ctx); err != nil {
			venues.AuthRefreshes.WithLabelValues(venueLabel, "failure").Inc()
			return nil, err
		}

		venues.AuthRefreshes.WithLabelValues(venueLabel, "success").Inc()

		return nil, nil
	})

	return err
}

type authChallengeResponse struct {
	Message string `json:"message"`
}

type authRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (c *Client) exchangeToken(ctx context.Context) error {
	var challenge authChallengeResponse
	if err := c.do(ctx, "auth message", http.MethodGet, "/v1/auth/message", nil, nil, &challenge, false); err != nil {
		return err
	}
	if challenge.Message == "" {
		return &types.AuthError{Protocol: types.ProtocolPredict, Op: "auth message", Err: fmt.Errorf("empty challenge")}
	}

	signature, err := c.signer.SignMessage(challenge.Message)
	if err != nil {
		return &types.AuthError{Protocol: types.ProtocolPredict, Op: "sign challenge", Err: err}
	}

	req := authRequest{
		Address:   c.signer.Address().Hex(),
		Message:   challenge.Message,
		Signature: signature,
	}

	var resp authResponse
	if err := c.do(ctx, "auth", http.MethodPost, "/v1/auth", nil, req, &resp, false); err != nil {
		return err
	}
	if resp.Token == "" {
		return &types.AuthError{Protocol: types.ProtocolPredict, Op: "auth", Err: fmt.Errorf("empty token")}
	}

	expires := jwtExpiry(resp.Token)
	c.session.set(resp.Token, expires)
	c.logger.Info("predict-auth-refreshed", zap.Time("expires", expires))

	return nil
}

// jwtExpiry pulls the exp claim out of an unverified JWT payload. The
// venue signed the token; only the lifetime matters here. Unparseable
// tokens get a short conservative lifetime.
func jwtExpiry(token string) time.Time {
	fallback := time.Now().Add(10 * time.Minute)

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fallback
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return fallback
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp <= 0 {
		return fallback
	}

	return time.Unix(claims.Exp, 0)
}
