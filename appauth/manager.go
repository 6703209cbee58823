// Copyright 2024 Palantir Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package appauth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"
)

const (
	// DefaultRefreshMargin is how long before expiry a cached token is
	// considered stale. Installation tokens live about one hour, so
	// renewing a few minutes early costs one exchange per hour at most.
	DefaultRefreshMargin = 5 * time.Minute

	// fallbackTokenLifetime is assumed when the exchange response does
	// not carry an expiry.
	fallbackTokenLifetime = 55 * time.Minute
)

// Token is an installation access token together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) staleAt(now time.Time, margin time.Duration) bool {
	return !t.ExpiresAt.After(now.Add(margin))
}

// appsService is the part of *github.AppsService the manager uses; tests
// substitute a local implementation.
type appsService interface {
	CreateInstallationToken(ctx context.Context, id int64, opts *github.InstallationTokenOptions) (*github.InstallationToken, *github.Response, error)
}

// TokenManager owns the process's one cached installation token. Token
// returns the cached value while it has more than the refresh margin of
// life left and otherwise performs a single synchronous exchange. The
// mutex is held across the exchange: concurrent callers that arrive
// during a renewal block on the lock, then find a fresh token and return
// it, so exactly one exchange happens per renewal.
type TokenManager struct {
	installationID int64
	signer         *signer
	apps           appsService

	margin    time.Duration
	now       func() time.Time
	base      http.RoundTripper
	userAgent string

	mu      sync.Mutex
	current *Token
}

type TokenManagerOption func(*TokenManager)

// WithRefreshMargin overrides how long before expiry a token is renewed.
func WithRefreshMargin(margin time.Duration) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.margin = margin
	}
}

// WithBaseTransport sets the transport used for exchange requests.
func WithBaseTransport(rt http.RoundTripper) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.base = rt
	}
}

// WithUserAgent sets the user agent sent on exchange requests.
func WithUserAgent(agent string) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.userAgent = agent
	}
}

// NewTokenManager validates the credential material and prepares the
// exchange client. Missing or unparseable keys are reported here, before
// any network traffic.
func NewTokenManager(c *Config, opts ...TokenManagerOption) (*TokenManager, error) {
	keyBytes, err := c.PrivateKeyBytes()
	if err != nil {
		return nil, err
	}
	sgn, err := newSigner(c.App.ID, keyBytes)
	if err != nil {
		return nil, err
	}

	tm := &TokenManager{
		installationID: c.App.InstallationID,
		signer:         sgn,
		margin:         DefaultRefreshMargin,
		now:            time.Now,
		base:           http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(tm)
	}

	appClient, err := newClientForTransport(
		&AppsTransport{signer: sgn, next: tm.base},
		c.V3APIURL,
		makeUserAgent(tm.userAgent, "application"),
	)
	if err != nil {
		return nil, err
	}
	tm.apps = appClient.Apps

	return tm, nil
}

// Token returns a valid installation token, renewing the cached one if it
// is within the refresh margin of expiry. Each renewal performs exactly
// one outbound call.
func (tm *TokenManager) Token(ctx context.Context) (Token, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.current != nil && !tm.current.staleAt(tm.now(), tm.margin) {
		return *tm.current, nil
	}

	tok, err := tm.exchange(ctx)
	if err != nil {
		return Token{}, err
	}
	tm.current = &tok
	return tok, nil
}

// CurrentExpiry reports the expiry of the cached token, if one exists. It
// never triggers a renewal; it exists for observability.
func (tm *TokenManager) CurrentExpiry() (time.Time, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.current == nil {
		return time.Time{}, false
	}
	return tm.current.ExpiresAt, true
}

func (tm *TokenManager) exchange(ctx context.Context) (Token, error) {
	it, _, err := tm.apps.CreateInstallationToken(ctx, tm.installationID, nil)
	if err != nil {
		return Token{}, classifyExchangeError(err)
	}
	if it.GetToken() == "" {
		return Token{}, errors.New("token exchange succeeded but returned an empty token")
	}

	tok := Token{Value: it.GetToken()}
	if exp := it.GetExpiresAt(); !exp.IsZero() {
		tok.ExpiresAt = exp.Time
	} else {
		tok.ExpiresAt = tm.now().Add(fallbackTokenLifetime)
	}
	return tok, nil
}
