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
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func makeBase(rp *ResponsePlayer, opts *ToolOptions) Base {
	if opts == nil {
		opts = &ToolOptions{}
	}
	return Base{
		Client:  github.NewClient(&http.Client{Transport: rp}),
		Options: opts,
	}
}

func makeToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultJSON decodes the text payload of a successful tool result into v.
func resultJSON(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()

	require.NotNil(t, res, "expected a tool result")
	require.False(t, res.IsError, "expected a success result, got: %s", resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), v))
}

// errorText returns the message of an in-band tool error.
func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, res, "expected a tool result")
	require.True(t, res.IsError, "expected an error result")
	return resultText(t, res)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, res.Content, "result has no content")
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "result content is not text")
	return tc.Text
}
