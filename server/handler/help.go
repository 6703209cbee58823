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
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetHelp describes the server and its tools. It answers locally and
// never calls GitHub, so it works even when credentials are broken.
type GetHelp struct {
	Version  string
	Options  *ToolOptions
	Handlers []ToolHandler
}

func (h *GetHelp) Tool() mcp.Tool {
	return mcp.NewTool("get_help",
		mcp.WithDescription("Describe this server: the available tools, how authentication works, and the environment variables that configure it. Answers locally without calling GitHub."),
	)
}

func (h *GetHelp) Mutates() bool {
	return false
}

// HelpTool is one tool entry in a get_help result.
type HelpTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HelpResult is the payload returned by get_help.
type HelpResult struct {
	Server         string            `json:"server"`
	Version        string            `json:"version"`
	Description    string            `json:"description"`
	Authentication string            `json:"authentication"`
	ReadOnly       bool              `json:"read_only"`
	BranchPrefix   string            `json:"branch_prefix,omitempty"`
	Tools          []HelpTool        `json:"tools"`
	Environment    map[string]string `json:"environment_variables"`
	Tips           []string          `json:"usage_tips"`
}

func (h *GetHelp) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tools := make([]HelpTool, 0, len(h.Handlers))
	for _, hh := range h.Handlers {
		t := hh.Tool()
		tools = append(tools, HelpTool{
			Name:        t.Name,
			Description: t.Description,
		})
	}

	res := HelpResult{
		Server:         "agent-bot",
		Version:        h.Version,
		Description:    "GitHub tools for automation agents, authenticated as a GitHub App installation.",
		Authentication: "Requests authenticate with short-lived installation tokens minted from the app's private key. Tokens renew automatically before they expire; no personal access token is involved.",
		Tools:          tools,
		Environment: map[string]string{
			"GITHUB_APP_ID":                  "GitHub App identifier (required)",
			"GITHUB_APP_PRIVATE_KEY":         "PEM private key of the app; exactly one of this or GITHUB_APP_PRIVATE_KEY_PATH must be set",
			"GITHUB_APP_PRIVATE_KEY_PATH":    "Path to a PEM file holding the app's private key",
			"GITHUB_APP_INSTALLATION_ID":     "Installation to act as (required)",
			"AGENTBOT_OPTIONS_BRANCH_PREFIX": "Namespace for branches created by this server",
			"AGENTBOT_OPTIONS_READ_ONLY":     "Disable all tools that write to GitHub",
			"AGENTBOT_LOG_LEVEL":             "Log level: debug, info, warn, or error",
		},
		Tips: []string{
			"Call get_repository first to learn the default branch before creating branches or pull requests.",
			"create_branch normalizes names; use the branch_name from its result, not the name you sent.",
			"Pass source_sha to create_branch to branch from an exact commit when the source branch may move.",
			"read_file returns content_base64 instead of content for binary files.",
			"create_pull_request reroutes through a fresh branch when the head already has an open pull request.",
		},
	}
	if h.Options != nil {
		res.ReadOnly = h.Options.ReadOnly
		res.BranchPrefix = h.Options.BranchPrefix
	}
	return toolResult(res)
}
