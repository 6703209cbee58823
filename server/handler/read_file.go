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
	"unicode/utf8"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
)

type ReadFile struct {
	Base
}

func (h *ReadFile) Tool() mcp.Tool {
	return mcp.NewTool("read_file",
		mcp.WithDescription("Read a file from a GitHub repository. Text files are returned as text; content that is not valid UTF-8 is returned base64-encoded with is_binary set."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner (user or organization)")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the repository root")),
		mcp.WithString("ref", mcp.Description("Branch, tag, or commit SHA (defaults to the default branch)")),
	)
}

func (h *ReadFile) Mutates() bool { return false }

type FileResult struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	Path          string `json:"path"`
	Ref           string `json:"ref"`
	Size          int    `json:"size"`
	SHA           string `json:"sha"`
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	IsBinary      bool   `json:"is_binary"`
}

func (h *ReadFile) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref := req.GetString("ref", "")

	ctx, logger := h.PrepareRepoContext(ctx, owner, repo)

	if ref == "" {
		ref, err = h.DefaultBranch(ctx, owner, repo)
		if err != nil {
			return githubToolError("resolve default branch", err)
		}
	}

	file, _, _, err := h.Client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		if isNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("file %q does not exist at ref %q", path, ref)), nil
		}
		return githubToolError("read file", err)
	}
	if file == nil {
		return mcp.NewToolResultError(fmt.Sprintf("%q is a directory, not a file", path)), nil
	}

	content, err := file.GetContent()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to decode content of %q: %v", path, err)), nil
	}

	res := &FileResult{
		Owner: owner,
		Repo:  repo,
		Path:  path,
		Ref:   ref,
		Size:  file.GetSize(),
		SHA:   file.GetSHA(),
		Type:  file.GetType(),
	}
	if utf8.ValidString(content) {
		res.Content = content
	} else {
		res.ContentBase64 = base64.StdEncoding.EncodeToString([]byte(content))
		res.IsBinary = true
	}

	logger.Debug().Msgf("Read %s@%s (%d bytes)", path, ref, res.Size)
	return toolResult(res)
}
