package wca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"wca-openai-proxy/internal/tokencache"
)

// expiryMargin is subtracted from a token's lifetime before it is shared
// through the token cache.
const expiryMargin = time.Minute

// iamTokenSource exchanges the API key for a bearer token on every call.
//
// oauth2.TokenSource has no context parameter, so the exchange is not tied
// to the inbound request: a client that disconnects does not abort it. It
// is bounded by timeout instead.
type iamTokenSource struct {
	url     string
	apiKey  string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func (s *iamTokenSource) Token() (*oauth2.Token, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", iamGrantType)
	form.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("wca: build iam request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wca: iam request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("wca: read iam response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := truncate(string(body), 200)
		var ierr iamErrorResponse
		if json.Unmarshal(body, &ierr) == nil && ierr.ErrorMessage != "" {
			msg = ierr.ErrorCode + ": " + ierr.ErrorMessage
		}
		s.logger.Error("iam token exchange failed",
			zap.Int("status", resp.StatusCode),
			zap.String("error_message", msg),
		)
		return nil, &StatusError{Endpoint: "iam", StatusCode: resp.StatusCode, Body: msg}
	}

	var tr iamTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("wca: decode iam response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("wca: iam response has no access_token")
	}

	tok := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   "Bearer",
	}
	switch {
	case tr.Expiration > 0:
		tok.Expiry = time.Unix(tr.Expiration, 0)
	case tr.ExpiresIn > 0:
		tok.Expiry = start.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	s.logger.Debug("iam token obtained",
		zap.Time("expiry", tok.Expiry),
		zap.Duration("duration", time.Since(start)),
	)
	return tok, nil
}

// cachedTokenSource consults the shared token cache before asking next.
// Cache failures are logged by the cache and treated as misses.
type cachedTokenSource struct {
	cache   tokencache.Cache
	key     string
	next    oauth2.TokenSource
	timeout time.Duration
}

func (s *cachedTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if raw, ok, err := s.cache.Get(ctx, s.key); err == nil && ok {
		var tok oauth2.Token
		if json.Unmarshal(raw, &tok) == nil && tok.Valid() {
			return &tok, nil
		}
	}

	tok, err := s.next.Token()
	if err != nil {
		return nil, err
	}

	if ttl := time.Until(tok.Expiry) - expiryMargin; !tok.Expiry.IsZero() && ttl > 0 {
		if raw, err := json.Marshal(tok); err == nil {
			_ = s.cache.Set(ctx, s.key, raw, ttl)
		}
	}
	return tok, nil
}
