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

	"github.com/google/go-github/v65/github"
	"github.com/pkg/errors"
)

// ConfigError reports invalid or incomplete App credential configuration.
// It is always produced before any network request is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid github app configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// AuthError reports that GitHub rejected the App's signed assertion or
// the token exchange itself: a bad App ID, a revoked installation, or an
// assertion outside the accepted clock window. These failures are
// surfaced as-is and never retried here.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github app authentication failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github app authentication failed (status %d)", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError wraps a transport-level failure during the token
// exchange. Callers may retry; this package never does.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "github token exchange: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// classifyExchangeError separates rejection by the identity endpoint from
// transport failures, so callers can tell a dead credential from a flaky
// network. Responses in the 4xx range mean GitHub processed and refused
// the exchange; anything else is treated as transient.
func classifyExchangeError(err error) error {
	var gerr *github.ErrorResponse
	if errors.As(err, &gerr) {
		status := 0
		if gerr.Response != nil {
			status = gerr.Response.StatusCode
		}
		if status >= 400 && status < 500 {
			return &AuthError{StatusCode: status, Message: gerr.Message, Err: err}
		}
	}
	return &TransientError{Err: err}
}
