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

package server

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/die-net/lrucache"
	"github.com/gregjones/httpcache"
	"github.com/mark3labs/mcp-go/server"
	"github.com/palantir/agent-bot/appauth"
	"github.com/palantir/agent-bot/metrics"
	"github.com/palantir/agent-bot/server/handler"
	"github.com/palantir/agent-bot/version"
	"github.com/pkg/errors"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
)

const (
	DefaultGitHubTimeout = 10 * time.Second

	DefaultHTTPCacheSize = 50 * datasize.MB
)

const instructions = `Interact with GitHub as a preconfigured GitHub App installation. Credentials
are managed by the server; tools never need tokens. Call get_help for a
catalog of tools and conventions. Branches created by this server are
normalized into a configured namespace, so always use the branch names that
tool results return.`

type Server struct {
	config   *Config
	logger   zerolog.Logger
	registry gometrics.Registry
	mcp      *server.MCPServer
}

// New instantiates a new Server.
// Callers must then invoke Start to run the Server.
func New(c *Config) (*Server, error) {
	logger := NewLogger(c.Logging)

	registry := gometrics.NewRegistry()
	metrics.SetRegistry(registry)

	githubTimeout := c.GithubTimeout
	if githubTimeout == 0 {
		githubTimeout = DefaultGitHubTimeout
	}

	userAgent := fmt.Sprintf("agent-bot/%s", version.GetVersion())

	tm, err := appauth.NewTokenManager(&c.Github, appauth.WithUserAgent(userAgent))
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize token manager")
	}
	metrics.GitHubTokenTTL(tm.CurrentExpiry)

	clientOpts := []appauth.ClientOption{
		appauth.WithClientUserAgent(userAgent),
		appauth.WithClientTimeout(githubTimeout),
		appauth.WithClientMiddleware(
			appauth.ClientLogging(zerolog.DebugLevel),
			appauth.ClientMetrics(registry),
		),
	}
	if !c.Cache.Disabled {
		maxSize := int64(DefaultHTTPCacheSize)
		if c.Cache.MaxSize != 0 {
			maxSize = int64(c.Cache.MaxSize)
		}
		cache := lrucache.New(maxSize, 0)
		metrics.GitHubCacheApproxSize(cache.Size)

		clientOpts = append(clientOpts, appauth.WithClientCaching(true, func() httpcache.Cache {
			return cache
		}))
	}

	client, err := appauth.NewInstallationClient(&c.Github, tm, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize GitHub client")
	}

	base := handler.Base{
		Client:  client,
		Options: &c.Options,
	}

	all := []handler.ToolHandler{
		&handler.GetRepository{Base: base},
		&handler.ListRepositories{Base: base},
		&handler.ReadFile{Base: base},
		&handler.ListBranches{Base: base},
		&handler.CreateBranch{Base: base},
		&handler.CreateOrUpdateFile{Base: base},
		&handler.ListPullRequests{Base: base},
		&handler.GetPullRequest{Base: base},
		&handler.CreatePullRequest{Base: base},
	}

	var handlers []handler.ToolHandler
	for _, h := range all {
		if c.Options.ReadOnly && h.Mutates() {
			continue
		}
		handlers = append(handlers, h)
	}
	if skipped := len(all) - len(handlers); skipped > 0 {
		logger.Info().Msgf("Running in read-only mode, %d write tools disabled", skipped)
	}

	help := &handler.GetHelp{
		Version: version.GetVersion(),
		Options: &c.Options,
	}
	handlers = append(handlers, help)
	help.Handlers = handlers

	mcpServer := server.NewMCPServer(
		"agent-bot",
		version.GetVersion(),
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithInstructions(instructions),
	)

	toolMiddleware := []handler.ToolMiddleware{
		handler.ToolLogging(logger),
		handler.ToolRecovery(),
	}
	for _, h := range handlers {
		mcpServer.AddTool(h.Tool(), handler.ApplyToolMiddleware(h.Handle, toolMiddleware))
	}

	return &Server{
		config:   c,
		logger:   logger,
		registry: registry,
		mcp:      mcpServer,
	}, nil
}

// Start is blocking and long-running. The server speaks the protocol on
// stdin and stdout until the stream closes or the process is signalled.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interval := s.config.Metrics.LogInterval; interval > 0 {
		go gometrics.Log(s.registry, interval, stdlog.New(s.logger, "", 0))
	}

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(s.logger, "", 0))

	s.logger.Info().Msgf("Listening on stdio, version %s", version.GetVersion())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "stdio server failed")
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}
