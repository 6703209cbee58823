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
	"strconv"

	"github.com/gregjones/httpcache"
	"github.com/rcrowley/go-metrics"
)

const (
	MetricsKeyRequests    = "github.requests"
	MetricsKeyRequests2xx = "github.requests.2xx"
	MetricsKeyRequests3xx = "github.requests.3xx"
	MetricsKeyRequests4xx = "github.requests.4xx"
	MetricsKeyRequests5xx = "github.requests.5xx"

	MetricsKeyRequestsCached = "github.requests.cached"

	MetricsKeyRateLimit          = "github.rate.limit"
	MetricsKeyRateLimitRemaining = "github.rate.remaining"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (fn roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}

// ClientMetrics instruments a client with counters for requests by status
// bucket, a counter for responses served from cache, and gauges tracking
// the primary rate limit.
func ClientMetrics(registry metrics.Registry) ClientMiddleware {
	requests := metrics.GetOrRegisterCounter(MetricsKeyRequests, registry)
	cached := metrics.GetOrRegisterCounter(MetricsKeyRequestsCached, registry)

	buckets := map[int]metrics.Counter{
		2: metrics.GetOrRegisterCounter(MetricsKeyRequests2xx, registry),
		3: metrics.GetOrRegisterCounter(MetricsKeyRequests3xx, registry),
		4: metrics.GetOrRegisterCounter(MetricsKeyRequests4xx, registry),
		5: metrics.GetOrRegisterCounter(MetricsKeyRequests5xx, registry),
	}

	rateLimit := metrics.GetOrRegisterGauge(MetricsKeyRateLimit, registry)
	rateRemaining := metrics.GetOrRegisterGauge(MetricsKeyRateLimitRemaining, registry)

	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			res, err := next.RoundTrip(r)
			if res != nil {
				requests.Inc(1)
				if bucket, ok := buckets[res.StatusCode/100]; ok {
					bucket.Inc(1)
				}
				if res.Header.Get(httpcache.XFromCache) != "" {
					cached.Inc(1)
				} else {
					// cached responses replay stale rate limit headers
					if limit, ok := headerInt64(res, "X-RateLimit-Limit"); ok {
						rateLimit.Update(limit)
					}
					if remaining, ok := headerInt64(res, "X-RateLimit-Remaining"); ok {
						rateRemaining.Update(remaining)
					}
				}
			}
			return res, err
		})
	}
}

func headerInt64(res *http.Response, key string) (int64, bool) {
	v := res.Header.Get(key)
	if v == "" {
		return 0, false
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}
