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
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	LogKeyCallID          = "mcp_call_id"
	LogKeyTool            = "mcp_tool_name"
	LogKeyRepositoryOwner = "github_repository_owner"
	LogKeyRepositoryName  = "github_repository_name"

	// listPageSize is the page size for paginated API calls; maxListPages
	// bounds how many pages a single tool call will fetch.
	listPageSize = 100
	maxListPages = 10
)

// ToolHandler is one tool of the server: its schema and implementation.
// Handlers that write to GitHub report Mutates true and are skipped at
// registration when the server runs read-only.
type ToolHandler interface {
	Tool() mcp.Tool
	Mutates() bool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

type Base struct {
	Client  *github.Client
	Options *ToolOptions
}

type ToolOptions struct {
	// BranchPrefix is the namespace for branches this server creates.
	// When set, create_branch normalizes names into it and
	// create_pull_request may create timestamped fallback branches under
	// it. When empty, names are sanitized but otherwise left alone.
	BranchPrefix string `yaml:"branch_prefix"`

	// ReadOnly disables every tool that writes to GitHub.
	ReadOnly bool `yaml:"read_only"`
}

func (o *ToolOptions) SetValuesFromEnv(prefix string) {
	setStringFromEnv("BRANCH_PREFIX", prefix, &o.BranchPrefix)
	setBoolFromEnv("READ_ONLY", prefix, &o.ReadOnly)
}

func setStringFromEnv(key, prefix string, value *string) bool {
	if v, ok := os.LookupEnv(prefix + key); ok {
		*value = v
		return true
	}
	return false
}

func setBoolFromEnv(key, prefix string, value *bool) bool {
	if v, ok := os.LookupEnv(prefix + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*value = b
			return true
		}
	}
	return false
}

// PrepareRepoContext adds the target repository to the logger carried by
// all messages from one tool call.
func (b *Base) PrepareRepoContext(ctx context.Context, owner, repo string) (context.Context, zerolog.Logger) {
	logger := zerolog.Ctx(ctx).With().
		Str(LogKeyRepositoryOwner, owner).
		Str(LogKeyRepositoryName, repo).
		Logger()
	ctx = logger.WithContext(ctx)

	return ctx, logger
}

// DefaultBranch resolves the repository's default branch.
func (b *Base) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	repository, _, err := b.Client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return repository.GetDefaultBranch(), nil
}

// BranchHeadSHA resolves the commit a branch currently points at.
func (b *Base) BranchHeadSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, _, err := b.Client.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", err
	}
	return ref.GetObject().GetSHA(), nil
}

func repoArgs(req mcp.CallToolRequest) (string, string, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return "", "", err
	}
	repo, err := req.RequireString("repo")
	if err != nil {
		return "", "", err
	}
	return owner, repo, nil
}

func toolResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool result")
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func formatTime(ts github.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(time.RFC3339)
}
