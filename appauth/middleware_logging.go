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

package appauth

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog"
)

// ClientLogging logs each request made by a client at the given level,
// using the logger in the request context. Events carry the method, URL,
// status, duration, and whether the response came from cache.
func ClientLogging(lvl zerolog.Level) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			res, err := next.RoundTrip(r)
			elapsed := time.Since(start)

			event := zerolog.Ctx(r.Context()).WithLevel(lvl).
				Str("method", r.Method).
				Str("path", r.URL.String()).
				Dur("elapsed", elapsed)

			if err != nil {
				event.Err(err).Msg("github_request")
				return res, err
			}

			event.
				Int("status", res.StatusCode).
				Int64("size", res.ContentLength).
				Bool("cached", res.Header.Get(httpcache.XFromCache) != "").
				Msg("github_request")
			return res, err
		})
	}
}
