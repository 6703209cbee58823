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

package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/palantir/agent-bot/appauth"
)

// githubToolError translates a failed GitHub call into an in-band tool
// error when the API answered, and into a protocol error otherwise.
// Credential failures always escape as protocol errors so callers can
// tell a broken credential from a failing call.
func githubToolError(action string, err error) (*mcp.CallToolResult, error) {
	var aerr *appauth.AuthError
	if errors.As(err, &aerr) {
		return nil, err
	}
	var terr *appauth.TransientError
	if errors.As(err, &terr) {
		return nil, err
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"failed to %s: github rate limit exceeded, resets at %s",
			action, rle.Rate.Reset.Format(time.RFC3339),
		)), nil
	}

	var gerr *github.ErrorResponse
	if errors.As(err, &gerr) {
		status := 0
		if gerr.Response != nil {
			status = gerr.Response.StatusCode
		}
		msg := gerr.Message
		if details := errorDetails(gerr); details != "" {
			msg = msg + ": " + details
		}
		return mcp.NewToolResultError(fmt.Sprintf(
			"failed to %s: github api error (status %d): %s", action, status, msg,
		)), nil
	}

	return nil, errors.Wrapf(err, "failed to %s", action)
}

// errorDetails flattens the detail entries of a 422 validation response.
func errorDetails(gerr *github.ErrorResponse) string {
	var details []string
	for _, e := range gerr.Errors {
		if e.Message != "" {
			details = append(details, e.Message)
		}
	}
	return strings.Join(details, "; ")
}

func isNotFound(err error) bool {
	var gerr *github.ErrorResponse
	if errors.As(err, &gerr) && gerr.Response != nil {
		return gerr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
