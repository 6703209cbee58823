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
	"strings"

	"github.com/google/go-github/v65/github"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// RepositoryInfo is the repository shape shared by get_repository and
// list_repositories.
type RepositoryInfo struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         string `json:"owner"`
	Description   string `json:"description,omitempty"`
	URL           string `json:"url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Fork          bool   `json:"fork"`
	Archived      bool   `json:"archived"`
	Language      string `json:"language,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	PushedAt      string `json:"pushed_at,omitempty"`
	Stargazers    int    `json:"stargazers"`
	Forks         int    `json:"forks"`
	OpenIssues    int    `json:"open_issues"`
}

func repositoryInfo(r *github.Repository) RepositoryInfo {
	return RepositoryInfo{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Description:   r.GetDescription(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		Fork:          r.GetFork(),
		Archived:      r.GetArchived(),
		Language:      r.GetLanguage(),
		CreatedAt:     formatTime(r.GetCreatedAt()),
		UpdatedAt:     formatTime(r.GetUpdatedAt()),
		PushedAt:      formatTime(r.GetPushedAt()),
		Stargazers:    r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
	}
}

// GetRepository returns metadata about a single repository.
type GetRepository struct {
	Base
}

func (h *GetRepository) Tool() mcp.Tool {
	return mcp.NewTool("get_repository",
		mcp.WithDescription("Get metadata about a repository, including its default branch, visibility, and activity counts."),
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

func (h *GetRepository) Mutates() bool {
	return false
}

func (h *GetRepository) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, repo, err := repoArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, _ = h.PrepareRepoContext(ctx, owner, repo)

	r, _, err := h.Client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		if isNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("repository %s/%s does not exist or is not accessible to this installation", owner, repo)), nil
		}
		return githubToolError("get repository", err)
	}

	return toolResult(repositoryInfo(r))
}

// ListRepositories lists the repositories the installation can access.
type ListRepositories struct {
	Base
}

func (h *ListRepositories) Tool() mcp.Tool {
	return mcp.NewTool("list_repositories",
		mcp.WithDescription("List the repositories accessible to this installation, optionally filtered by owner."),
		mcp.WithString("owner",
			mcp.Description("Only include repositories belonging to this owner"),
		),
	)
}

func (h *ListRepositories) Mutates() bool {
	return false
}

// RepositoryListResult is the payload returned by list_repositories.
type RepositoryListResult struct {
	Owner        string           `json:"owner,omitempty"`
	Repositories []RepositoryInfo `json:"repositories"`
	Total        int              `json:"total"`
}

func (h *ListRepositories) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner := req.GetString("owner", "")

	zerolog.Ctx(ctx).Debug().Msg("Listing installation repositories")

	repos := []RepositoryInfo{}
	opt := &github.ListOptions{PerPage: listPageSize}
	for i := 0; i < maxListPages; i++ {
		page, res, err := h.Client.Apps.ListRepos(ctx, opt)
		if err != nil {
			return githubToolError("list repositories", err)
		}
		for _, r := range page.Repositories {
			if owner != "" && !strings.EqualFold(r.GetOwner().GetLogin(), owner) {
				continue
			}
			repos = append(repos, repositoryInfo(r))
		}
		if res.NextPage == 0 {
			break
		}
		opt.Page = res.NextPage
	}

	return toolResult(RepositoryListResult{
		Owner:        owner,
		Repositories: repos,
		Total:        len(repos),
	})
}
