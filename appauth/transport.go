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
	"net/http"
)

// AppsTransport authenticates requests as the App itself by signing a
// fresh assertion per request. Only app-level endpoints (the token
// exchange, app metadata) accept this identity.
type AppsTransport struct {
	signer *signer
	next   http.RoundTripper
}

// NewAppsTransport builds an app-authenticating transport around next,
// which defaults to http.DefaultTransport. Key problems are reported
// here, before any request is made.
func NewAppsTransport(c *Config, next http.RoundTripper) (*AppsTransport, error) {
	keyBytes, err := c.PrivateKeyBytes()
	if err != nil {
		return nil, err
	}
	sgn, err := newSigner(c.App.ID, keyBytes)
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &AppsTransport{signer: sgn, next: next}, nil
}

func (t *AppsTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	assertion, err := t.signer.Sign()
	if err != nil {
		return nil, err
	}
	r.Header.Set("Authorization", "Bearer "+assertion)
	return t.next.RoundTrip(r)
}

// Transport authenticates requests with installation tokens from a
// TokenManager, renewing transparently as the cached token nears expiry.
type Transport struct {
	manager *TokenManager
	next    http.RoundTripper
}

// NewTransport builds an installation-authenticating transport around
// next, which defaults to http.DefaultTransport.
func NewTransport(tm *TokenManager, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{manager: tm, next: next}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	tok, err := t.manager.Token(r.Context())
	if err != nil {
		return nil, err
	}
	r.Header.Set("Authorization", "token "+tok.Value)
	return t.next.RoundTrip(r)
}
