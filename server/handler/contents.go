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
	"encoding/base64"
	"fmt"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
)

type CreateOrUpdateFile struct {
	Base
}

func (h *CreateOrUpdateFile) Tool() mcp.Tool {
	return mcp.NewTool("create_or_update_file",
		mcp.WithDescription("Create a file or update an existing one with a single commit. The path is probed on the target branch to decide between create and update, so one call is enough either way."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner (user or organization)")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the repository root")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content, as text or as base64 when is_base64 is set")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Commit message")),
		mcp.WithString("branch", mcp.Description("Target branch (defaults to the default branch)")),
		mcp.WithBoolean("is_base64", mcp.Description("Treat content as base64-encoded binary data"), mcp.DefaultBool(false)),
	)
}

func (h *CreateOrUpdateFile) Mutates() bool { return true }

type FileCommitResult struct {
	Owner   string      `json:"owner"`
	Repo    string      `json:"repo"`
	Path    string      `json:"path"`
	Branch  string      `json:"branch"`
	Action  string      `json:"action"`
	Commit  CommitInfo  `json:"commit"`
	Content ContentInfo `json:"content"`
}

type CommitInfo struct {
	SHA     string `json:"sha"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

type ContentInfo struct {
	SHA string `json:"sha"`
	URL string `json:"url,omitempty"`
}

func (h *CreateOrUpdateFile) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	branch := req.GetString("branch", "")
	isBase64 := req.GetBool("is_base64", false)

	raw := []byte(content)
	if isBase64 {
		raw, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("content is not valid base64: %v", err)), nil
		}
	}

	ctx, logger := h.PrepareRepoContext(ctx, owner, repo)

	if branch == "" {
		branch, err = h.DefaultBranch(ctx, owner, repo)
		if err != nil {
			return githubToolError("resolve default branch", err)
		}
	}

	// Updating requires the current blob SHA, so probe the path first. A
	// 404 means this is a new file.
	action := "created"
	var blobSHA *string
	existing, _, _, err := h.Client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	switch {
	case err == nil && existing == nil:
		return mcp.NewToolResultError(fmt.Sprintf("%q is a directory, not a file", path)), nil
	case err == nil:
		action = "updated"
		blobSHA = existing.SHA
	case !isNotFound(err):
		return githubToolError("check existing file", err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: raw,
		Branch:  github.String(branch),
		SHA:     blobSHA,
	}

	var resp *github.RepositoryContentResponse
	if action == "updated" {
		resp, _, err = h.Client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
		if err != nil {
			return githubToolError("update file", err)
		}
	} else {
		resp, _, err = h.Client.Repositories.CreateFile(ctx, owner, repo, path, opts)
		if err != nil {
			return githubToolError("create file", err)
		}
	}

	logger.Info().Msgf("Committed %s to %s as %s", path, branch, resp.Commit.GetSHA())

	commitMessage := resp.Commit.GetMessage()
	if commitMessage == "" {
		commitMessage = message
	}

	return toolResult(&FileCommitResult{
		Owner:  owner,
		Repo:   repo,
		Path:   path,
		Branch: branch,
		Action: action,
		Commit: CommitInfo{
			SHA:     resp.Commit.GetSHA(),
			URL:     resp.Commit.GetHTMLURL(),
			Message: commitMessage,
		},
		Content: ContentInfo{
			SHA: resp.Content.GetSHA(),
			URL: resp.Content.GetHTMLURL(),
		},
	})
}
