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

package metrics

import (
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
)

func TestGitHubTokenTTL(t *testing.T) {
	SetRegistry(gometrics.NewRegistry())

	expiry := time.Now().Add(30 * time.Minute)
	haveToken := false

	g := GitHubTokenTTL(func() (time.Time, bool) {
		return expiry, haveToken
	})

	assert.EqualValues(t, -1, g.Value(), "the gauge must report -1 before the first token")

	haveToken = true
	assert.InDelta(t, (30 * time.Minute).Seconds(), float64(g.Value()), 5, "the gauge must report seconds until expiry")
}

func TestGitHubCacheApproxSize(t *testing.T) {
	SetRegistry(gometrics.NewRegistry())

	size := int64(4096)
	g := GitHubCacheApproxSize(func() int64 { return size })

	assert.EqualValues(t, 4096, g.Value())

	size = 8192
	assert.EqualValues(t, 8192, g.Value(), "the gauge must track the live cache size")
}
