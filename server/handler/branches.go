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
	"fmt"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// CreateBranch creates a new branch from an existing commit. Branch names
// are normalized before creation so that agent-supplied names always land
// in the configured namespace.
type CreateBranch struct {
	Base
}

func (h *CreateBranch) Tool() mcp.Tool {
	return mcp.NewTool("create_branch",
		mcp.WithDescription("Create a new branch in a repository. The branch name is normalized to a safe ref name and, when a branch prefix is configured, placed under that prefix. By default the branch starts at the head of the default branch."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner (user or organization)"),
		),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name"),
		),
		mcp.WithString("branch_name",
			mcp.Required(),
			mcp.Description("Name for the new branch; it is normalized before use"),
		),
		mcp.WithString("source_branch",
			mcp.Description("Branch to start from; defaults to the repository's default branch"),
		),
		mcp.WithString("source_sha",
			mcp.Description("Exact commit SHA to start from; takes priority over source_branch"),
		),
	)
}

func (h *CreateBranch) Mutates() bool {
	return true
}

// BranchCreateResult is the payload returned by create_branch.
type BranchCreateResult struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	BranchName    string `json:"branch_name"`
	RequestedName string `json:"requested_name,omitempty"`
	SourceRef     string `json:"source_ref"`
	Message       string `json:"message"`
}

func (h *CreateBranch) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	requested, err := req.RequireString("branch_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sourceBranch := req.GetString("source_branch", "")
	sourceSHA := req.GetString("source_sha", "")

	ctx, logger := h.PrepareRepoContext(ctx, owner, repo)

	name := NormalizeBranchName(requested, h.Options.BranchPrefix)
	if name == "" {
		return mcp.NewToolResultError(fmt.Sprintf("branch name %q is empty after normalization", requested)), nil
	}

	var srcSHA, srcRef string
	switch {
	case sourceSHA != "":
		srcSHA = sourceSHA
		srcRef = sourceSHA

	case sourceBranch != "":
		srcSHA, err = h.BranchHeadSHA(ctx, owner, repo, sourceBranch)
		if err != nil {
			if isNotFound(err) {
				return mcp.NewToolResultError(fmt.Sprintf("source branch %q does not exist in %s/%s", sourceBranch, owner, repo)), nil
			}
			return githubToolError("resolve source branch", err)
		}
		srcRef = sourceBranch

	default:
		defaultBranch, err := h.DefaultBranch(ctx, owner, repo)
		if err != nil {
			return githubToolError("get repository", err)
		}
		srcSHA, err = h.BranchHeadSHA(ctx, owner, repo, defaultBranch)
		if err != nil {
			return githubToolError("resolve default branch", err)
		}
		srcRef = defaultBranch
	}

	ref := &github.Reference{
		Ref: github.String("refs/heads/" + name),
		Object: &github.GitObject{
			SHA: github.String(srcSHA),
		},
	}
	if _, _, err := h.Client.Git.CreateRef(ctx, owner, repo, ref); err != nil {
		return githubToolError("create branch", err)
	}

	logger.Info().Msgf("Created branch %s at %s", name, srcSHA)

	res := BranchCreateResult{
		Owner:      owner,
		Repo:       repo,
		BranchName: name,
		SourceRef:  srcRef,
		Message:    fmt.Sprintf("Created branch %q from %s", name, srcRef),
	}
	if name != requested {
		res.RequestedName = requested
	}
	return toolResult(res)
}

// ListBranches lists the branches of a repository with their head commits.
type ListBranches struct {
	Base
}

func (h *ListBranches) Tool() mcp.Tool {
	return mcp.NewTool("list_branches",
		mcp.WithDescription("List branches in a repository, including the head commit SHA and last commit time of each branch."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner (user or organization)"),
		),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name"),
		),
	)
}

func (h *ListBranches) Mutates() bool {
	return false
}

// BranchInfo describes a single branch in a list_branches result.
type BranchInfo struct {
	Name         string `json:"name"`
	SHA          string `json:"sha"`
	Protected    bool   `json:"protected"`
	IsDefault    bool   `json:"is_default"`
	LastCommitAt string `json:"last_commit_at,omitempty"`
}

// BranchListResult is the payload returned by list_branches.
type BranchListResult struct {
	Owner    string       `json:"owner"`
	Repo     string       `json:"repo"`
	Branches []BranchInfo `json:"branches"`
	Total    int          `json:"total"`
}

func (h *ListBranches) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, logger := h.PrepareRepoContext(ctx, owner, repo)

	defaultBranch, err := h.DefaultBranch(ctx, owner, repo)
	if err != nil {
		return githubToolError("get repository", err)
	}

	branches := []BranchInfo{}
	opt := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: listPageSize},
	}
	for i := 0; i < maxListPages; i++ {
		page, res, err := h.Client.Repositories.ListBranches(ctx, owner, repo, opt)
		if err != nil {
			return githubToolError("list branches", err)
		}
		for _, br := range page {
			sha := br.GetCommit().GetSHA()
			branches = append(branches, BranchInfo{
				Name:         br.GetName(),
				SHA:          sha,
				Protected:    br.GetProtected(),
				IsDefault:    br.GetName() == defaultBranch,
				LastCommitAt: h.lastCommitTime(ctx, logger, owner, repo, sha),
			})
		}
		if res.NextPage == 0 {
			break
		}
		opt.Page = res.NextPage
	}

	return toolResult(BranchListResult{
		Owner:    owner,
		Repo:     repo,
		Branches: branches,
		Total:    len(branches),
	})
}

// lastCommitTime returns the commit time of sha in RFC 3339 form, or an
// empty string if the commit cannot be loaded. Listing proceeds without
// commit times rather than failing the whole call.
func (h *ListBranches) lastCommitTime(ctx context.Context, logger zerolog.Logger, owner, repo, sha string) string {
	commit, _, err := h.Client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		logger.Warn().Err(err).Msgf("Failed to load commit %.10s for branch listing", sha)
		return ""
	}

	c := commit.GetCommit()
	if c == nil {
		return ""
	}
	if committer := c.GetCommitter(); committer != nil && !committer.GetDate().IsZero() {
		return formatTime(committer.GetDate())
	}
	if author := c.GetAuthor(); author != nil && !author.GetDate().IsZero() {
		return formatTime(author.GetDate())
	}
	return ""
}
