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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func testPrivateKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block)), key
}

func testConfig(t *testing.T) *Config {
	t.Helper()

	pemKey, _ := testPrivateKey(t)
	c := &Config{}
	c.App.ID = 1234
	c.App.InstallationID = 5678
	c.App.PrivateKey = pemKey
	return c
}

// exchangeRecorder is an http.RoundTripper that records every request it
// sees and answers with a configurable response. An optional delay widens
// the renewal window so concurrency tests can pile callers onto it.
type exchangeRecorder struct {
	respond func(r *http.Request) (*http.Response, error)
	delay   time.Duration

	mu       sync.Mutex
	requests []*http.Request
}

func (er *exchangeRecorder) RoundTrip(r *http.Request) (*http.Response, error) {
	er.mu.Lock()
	er.requests = append(er.requests, r)
	er.mu.Unlock()

	if er.delay > 0 {
		time.Sleep(er.delay)
	}
	return er.respond(r)
}

func (er *exchangeRecorder) count() int {
	er.mu.Lock()
	defer er.mu.Unlock()
	return len(er.requests)
}

func (er *exchangeRecorder) last() *http.Request {
	er.mu.Lock()
	defer er.mu.Unlock()
	if len(er.requests) == 0 {
		return nil
	}
	return er.requests[len(er.requests)-1]
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		Status:     http.StatusText(status),
		StatusCode: status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
		},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}

func tokenBody(token string, expiresAt time.Time) string {
	if expiresAt.IsZero() {
		return fmt.Sprintf(`{"token": %q}`, token)
	}
	return fmt.Sprintf(`{"token": %q, "expires_at": %q}`, token, expiresAt.UTC().Format(time.RFC3339))
}
