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
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	illegalRefChars = regexp.MustCompile(`[^\w\-/.]`)
	slashRuns       = regexp.MustCompile(`/{2,}`)
	dotRuns         = regexp.MustCompile(`\.{2,}`)
)

// NormalizeBranchName turns a requested branch name into a valid git ref
// name. Characters git rejects are replaced with hyphens and runs of
// separators are collapsed. When a prefix is configured, names are forced
// into that namespace: an existing foreign prefix (feature/, fix/) is
// dropped and only the final path segment is kept.
func NormalizeBranchName(name, prefix string) string {
	normalized := strings.TrimSpace(name)

	if prefix != "" && !strings.HasPrefix(normalized, prefix+"/") {
		if i := strings.LastIndex(normalized, "/"); i >= 0 {
			normalized = normalized[i+1:]
		}
		normalized = prefix + "/" + normalized
	}

	normalized = illegalRefChars.ReplaceAllString(normalized, "-")
	normalized = slashRuns.ReplaceAllString(normalized, "/")
	normalized = dotRuns.ReplaceAllString(normalized, ".")
	normalized = strings.Trim(normalized, "/.-")

	if normalized == "" || normalized == prefix {
		return ""
	}
	if prefix != "" && !strings.HasPrefix(normalized, prefix+"/") {
		normalized = prefix + "/" + normalized
	}
	return normalized
}

// timestampedBranchName names the fallback branches create_pull_request
// makes when an identical pull request is already open.
func timestampedBranchName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s", prefix, now.Format("2006-01-02"), now.Format("150405"))
}
