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
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/gregjones/httpcache"
	"github.com/pkg/errors"
)

// ClientMiddleware modifies the transport of a GitHub client to add
// common functionality, like logging or metrics collection.
type ClientMiddleware func(http.RoundTripper) http.RoundTripper

type clientOptions struct {
	userAgent      string
	timeout        time.Duration
	transport      http.RoundTripper
	cacheFunc      func() httpcache.Cache
	alwaysValidate bool
	middleware     []ClientMiddleware
}

type ClientOption func(*clientOptions)

// WithClientUserAgent sets the base user agent for created clients.
func WithClientUserAgent(agent string) ClientOption {
	return func(o *clientOptions) {
		o.userAgent = agent
	}
}

// WithClientTimeout sets an overall timeout on requests, including the
// token renewal a request may trigger.
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithClientTransport sets the transport that performs the actual network
// calls. Defaults to http.DefaultTransport; tests substitute a recorder.
func WithClientTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithClientCaching caches responses with standard HTTP semantics in a
// cache returned by cacheFunc. If alwaysValidate is set, cached entries
// are revalidated with conditional requests instead of being served by
// age heuristics, which is the safe mode for API data.
func WithClientCaching(alwaysValidate bool, cacheFunc func() httpcache.Cache) ClientOption {
	return func(o *clientOptions) {
		o.alwaysValidate = alwaysValidate
		o.cacheFunc = cacheFunc
	}
}

// WithClientMiddleware adds middleware applied to created clients. The
// first middleware is outermost.
func WithClientMiddleware(middleware ...ClientMiddleware) ClientOption {
	return func(o *clientOptions) {
		o.middleware = middleware
	}
}

// NewInstallationClient returns a GitHub client whose requests carry
// installation tokens minted by tm.
func NewInstallationClient(c *Config, tm *TokenManager, opts ...ClientOption) (*github.Client, error) {
	options := resolveClientOptions(opts)
	auth := NewTransport(tm, options.transport)
	return assembleClient(auth, c, options, fmt.Sprintf("installation: %d", c.App.InstallationID))
}

// NewAppClient returns a GitHub client that authenticates as the App
// itself, for app-level endpoints.
func NewAppClient(c *Config, opts ...ClientOption) (*github.Client, error) {
	options := resolveClientOptions(opts)
	auth, err := NewAppsTransport(c, options.transport)
	if err != nil {
		return nil, err
	}
	return assembleClient(auth, c, options, "application")
}

func resolveClientOptions(opts []ClientOption) *clientOptions {
	options := &clientOptions{
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func assembleClient(auth http.RoundTripper, c *Config, options *clientOptions, details string) (*github.Client, error) {
	middleware := options.middleware
	if options.cacheFunc != nil {
		middleware = append(middleware, clientCaching(options.alwaysValidate, options.cacheFunc))
	}

	httpClient := &http.Client{
		Transport: applyMiddleware(auth, middleware),
		Timeout:   options.timeout,
	}

	client, err := newGitHubClient(httpClient, c.V3APIURL)
	if err != nil {
		return nil, err
	}
	client.UserAgent = makeUserAgent(options.userAgent, details)
	return client, nil
}

// applyMiddleware wraps base so that middleware[0] is outermost.
func applyMiddleware(base http.RoundTripper, middleware []ClientMiddleware) http.RoundTripper {
	for i := len(middleware) - 1; i >= 0; i-- {
		base = middleware[i](base)
	}
	return base
}

func newClientForTransport(rt http.RoundTripper, v3APIURL, userAgent string) (*github.Client, error) {
	client, err := newGitHubClient(&http.Client{Transport: rt}, v3APIURL)
	if err != nil {
		return nil, err
	}
	client.UserAgent = userAgent
	return client, nil
}

func newGitHubClient(httpClient *http.Client, v3APIURL string) (*github.Client, error) {
	if v3APIURL == "" {
		v3APIURL = DefaultV3APIURL
	}
	// go-github requires the trailing slash
	if !strings.HasSuffix(v3APIURL, "/") {
		v3APIURL += "/"
	}
	baseURL, err := url.Parse(v3APIURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse base URL: %q", v3APIURL)
	}

	client := github.NewClient(httpClient)
	client.BaseURL = baseURL
	return client, nil
}

func makeUserAgent(base, details string) string {
	if base == "" {
		base = "agent-bot/undefined"
	}
	return fmt.Sprintf("%s (%s)", base, details)
}

// clientCaching layers an HTTP cache under the other middleware. With
// alwaysValidate, requests carry "Cache-Control: max-age=0" so cached
// entries are always revalidated with conditional requests; GitHub
// answers unchanged resources with cheap 304s.
func clientCaching(alwaysValidate bool, cacheFunc func() httpcache.Cache) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		cachingTransport := httpcache.NewTransport(cacheFunc())
		cachingTransport.Transport = next
		cachingTransport.MarkCachedResponses = true

		if !alwaysValidate {
			return cachingTransport
		}
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Cache-Control") == "" {
				r.Header.Set("Cache-Control", "max-age=0")
			}
			return cachingTransport.RoundTrip(r)
		})
	}
}
