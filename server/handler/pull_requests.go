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
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
)

// PullRequestInfo is the summary form of a pull request shared by the
// pull request tools.
type PullRequestInfo struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	State     string `json:"state"`
	Head      string `json:"head"`
	Base      string `json:"base"`
	URL       string `json:"url"`
	User      string `json:"user,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func pullRequestInfo(pr *github.PullRequest) PullRequestInfo {
	return PullRequestInfo{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		State:     pr.GetState(),
		Head:      pr.GetHead().GetRef(),
		Base:      pr.GetBase().GetRef(),
		URL:       pr.GetHTMLURL(),
		User:      pr.GetUser().GetLogin(),
		CreatedAt: formatTime(pr.GetCreatedAt()),
		UpdatedAt: formatTime(pr.GetUpdatedAt()),
	}
}

// CreatePullRequest opens a pull request between two branches. When the
// head branch already has an open pull request against the base and a
// branch prefix is configured, the head is recreated under a timestamped
// name so the new pull request can be opened without disturbing the
// existing one.
type CreatePullRequest struct {
	Base
}

func (h *CreatePullRequest) Tool() mcp.Tool {
	return mcp.NewTool("create_pull_request",
		mcp.WithDescription("Open a pull request from a head branch into a base branch. The base defaults to the repository's default branch. Returns an error result if the branches have no difference or the head already has an open pull request that cannot be rerouted."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner (user or organization)"),
		),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Pull request title"),
		),
		mcp.WithString("head",
			mcp.Required(),
			mcp.Description("Branch containing the changes"),
		),
		mcp.WithString("base",
			mcp.Description("Branch to merge into; defaults to the repository's default branch"),
		),
		mcp.WithString("body",
			mcp.Description("Pull request description in Markdown"),
		),
		mcp.WithBoolean("draft",
			mcp.Description("Open the pull request as a draft"),
			mcp.DefaultBool(false),
		),
	)
}

func (h *CreatePullRequest) Mutates() bool {
	return true
}

// PullRequestCreateResult is the payload returned by create_pull_request.
type PullRequestCreateResult struct {
	Owner        string          `json:"owner"`
	Repo         string          `json:"repo"`
	PullRequest  PullRequestInfo `json:"pull_request"`
	NewBranch    string          `json:"new_branch,omitempty"`
	OriginalHead string          `json:"original_head,omitempty"`
	Message      string          `json:"message"`
}

func (h *CreatePullRequest) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	head, err := req.RequireString("head")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	base := req.GetString("base", "")
	body := req.GetString("body", "")
	draft := req.GetBool("draft", false)

	ctx, logger := h.PrepareRepoContext(ctx, owner, repo)

	if base == "" {
		base, err = h.DefaultBranch(ctx, owner, repo)
		if err != nil {
			return githubToolError("get repository", err)
		}
	}
	if head == base {
		return mcp.NewToolResultError(fmt.Sprintf("head and base are both %q; a pull request needs two different branches", head)), nil
	}

	baseSHA, err := h.BranchHeadSHA(ctx, owner, repo, base)
	if err != nil {
		if isNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("base branch %q does not exist in %s/%s", base, owner, repo)), nil
		}
		return githubToolError("resolve base branch", err)
	}
	headSHA, err := h.BranchHeadSHA(ctx, owner, repo, head)
	if err != nil {
		if isNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("head branch %q does not exist in %s/%s", head, owner, repo)), nil
		}
		return githubToolError("resolve head branch", err)
	}
	if headSHA == baseSHA {
		return mcp.NewToolResultError(fmt.Sprintf("branches %q and %q point at the same commit; push changes to %q before opening a pull request", head, base, head)), nil
	}

	result := PullRequestCreateResult{Owner: owner, Repo: repo}

	existing, err := h.openPullRequestFor(ctx, owner, repo, head, base)
	if err != nil {
		return githubToolError("check for existing pull request", err)
	}
	if existing != nil {
		if h.Options.BranchPrefix == "" {
			return mcp.NewToolResultError(fmt.Sprintf("branch %q already has an open pull request against %q: #%d", head, base, existing.GetNumber())), nil
		}

		// Reroute through a fresh branch at the same commit so the
		// existing pull request keeps its head.
		newBranch := timestampedBranchName(h.Options.BranchPrefix, time.Now().UTC())
		ref := &github.Reference{
			Ref: github.String("refs/heads/" + newBranch),
			Object: &github.GitObject{
				SHA: github.String(headSHA),
			},
		}
		if _, _, err := h.Client.Git.CreateRef(ctx, owner, repo, ref); err != nil {
			return githubToolError("create branch", err)
		}

		logger.Info().Msgf("Rerouted pull request head from %s to %s (open PR #%d)", head, newBranch, existing.GetNumber())
		result.NewBranch = newBranch
		result.OriginalHead = head
		head = newBranch
	}

	pr, _, err := h.Client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
		Draft: github.Bool(draft),
	})
	if err != nil {
		return githubToolError("create pull request", err)
	}

	logger.Info().Msgf("Created pull request #%d: %s -> %s", pr.GetNumber(), head, base)

	result.PullRequest = pullRequestInfo(pr)
	result.Message = fmt.Sprintf("Created pull request #%d", pr.GetNumber())
	if result.NewBranch != "" {
		result.Message = fmt.Sprintf("Created pull request #%d from new branch %q (%q already had an open pull request)", pr.GetNumber(), result.NewBranch, result.OriginalHead)
	}
	return toolResult(result)
}

// openPullRequestFor returns an open pull request from head into base, or
// nil if none exists.
func (h *CreatePullRequest) openPullRequestFor(ctx context.Context, owner, repo, head, base string) (*github.PullRequest, error) {
	prs, _, err := h.Client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State:       "open",
		Head:        owner + ":" + head,
		Base:        base,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0], nil
}

// ListPullRequests lists pull requests in a repository.
type ListPullRequests struct {
	Base
}

func (h *ListPullRequests) Tool() mcp.Tool {
	return mcp.NewTool("list_pull_requests",
		mcp.WithDescription("List pull requests in a repository, optionally filtered by state."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner (user or organization)"),
		),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name"),
		),
		mcp.WithString("state",
			mcp.Description("Filter by state"),
			mcp.Enum("open", "closed", "all"),
			mcp.DefaultString("open"),
		),
	)
}

func (h *ListPullRequests) Mutates() bool {
	return false
}

// PullRequestListResult is the payload returned by list_pull_requests.
type PullRequestListResult struct {
	Owner        string            `json:"owner"`
	Repo         string            `json:"repo"`
	State        string            `json:"state"`
	PullRequests []PullRequestInfo `json:"pull_requests"`
	Total        int               `json:"total"`
}

func (h *ListPullRequests) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state := req.GetString("state", "open")
	switch state {
	case "open", "closed", "all":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("state must be one of open, closed, or all; got %q", state)), nil
	}

	ctx, _ = h.PrepareRepoContext(ctx, owner, repo)

	prs := []PullRequestInfo{}
	opt := &github.PullRequestListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: listPageSize},
	}
	for i := 0; i < maxListPages; i++ {
		page, res, err := h.Client.PullRequests.List(ctx, owner, repo, opt)
		if err != nil {
			return githubToolError("list pull requests", err)
		}
		for _, pr := range page {
			prs = append(prs, pullRequestInfo(pr))
		}
		if res.NextPage == 0 {
			break
		}
		opt.Page = res.NextPage
	}

	return toolResult(PullRequestListResult{
		Owner:        owner,
		Repo:         repo,
		State:        state,
		PullRequests: prs,
		Total:        len(prs),
	})
}

// GetPullRequest returns the full details of a single pull request.
type GetPullRequest struct {
	Base
}

func (h *GetPullRequest) Tool() mcp.Tool {
	return mcp.NewTool("get_pull_request",
		mcp.WithDescription("Get detailed information about a single pull request, including merge state and diff statistics."),
		mcp.WithString("owner",
			mcp.Required(),
			mcp.Description("Repository owner (user or organization)"),
		),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name"),
		),
		mcp.WithNumber("number",
			mcp.Required(),
			mcp.Description("Pull request number"),
		),
	)
}

func (h *GetPullRequest) Mutates() bool {
	return false
}

// PullRequestDetail extends PullRequestInfo with merge state and diff
// statistics for a single pull request.
type PullRequestDetail struct {
	PullRequestInfo

	MergedAt     string `json:"merged_at,omitempty"`
	Merged       bool   `json:"merged"`
	Mergeable    *bool  `json:"mergeable"`
	Draft        bool   `json:"draft"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changed_files"`
}

func (h *GetPullRequest) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	number, err := req.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, _ = h.PrepareRepoContext(ctx, owner, repo)

	pr, _, err := h.Client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		if isNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("pull request #%d does not exist in %s/%s", number, owner, repo)), nil
		}
		return githubToolError("get pull request", err)
	}

	detail := PullRequestDetail{
		PullRequestInfo: pullRequestInfo(pr),
		MergedAt:        formatTime(pr.GetMergedAt()),
		Merged:          pr.GetMerged(),
		Mergeable:       pr.Mergeable,
		Draft:           pr.GetDraft(),
		Additions:       pr.GetAdditions(),
		Deletions:       pr.GetDeletions(),
		ChangedFiles:    pr.GetChangedFiles(),
	}
	return toolResult(detail)
}
