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

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// ToolMiddleware wraps a tool handler to add common functionality, like
// logging or panic recovery.
type ToolMiddleware func(server.ToolHandlerFunc) server.ToolHandlerFunc

// ApplyToolMiddleware wraps handler so that middleware[0] is outermost.
func ApplyToolMiddleware(handler server.ToolHandlerFunc, middleware []ToolMiddleware) server.ToolHandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// ToolLogging attaches a call-scoped logger to the context and logs one
// line per call with the outcome and elapsed time. Each call gets a uuid
// so interleaved calls can be told apart in the log.
func ToolLogging(logger zerolog.Logger) ToolMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			callLogger := logger.With().
				Str(LogKeyCallID, uuid.New().String()).
				Str(LogKeyTool, req.Params.Name).
				Logger()
			ctx = callLogger.WithContext(ctx)

			start := time.Now()
			res, err := next(ctx, req)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				callLogger.Error().Err(err).Dur("elapsed", elapsed).Msg("tool_call")
			case res != nil && res.IsError:
				callLogger.Warn().Bool("tool_error", true).Dur("elapsed", elapsed).Msg("tool_call")
			default:
				callLogger.Info().Dur("elapsed", elapsed).Msg("tool_call")
			}
			return res, err
		}
	}
}

// ToolRecovery converts a panicking handler into an error result so one
// bad call cannot take down the server.
func ToolRecovery() ToolMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					zerolog.Ctx(ctx).Error().Interface("panic", r).Msg("tool handler panicked")
					res = mcp.NewToolResultError(fmt.Sprintf("internal error handling %s", req.Params.Name))
					err = nil
				}
			}()
			return next(ctx, req)
		}
	}
}
