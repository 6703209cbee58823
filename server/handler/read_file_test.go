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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	rp := &ResponsePlayer{}
	repoRule := rp.AddRule(
		ExactPathMatcher("/repos/octo/hello"),
		"testdata/responses/repo.yml",
	)
	fileRule := rp.AddRule(
		ExactPathMatcher("/repos/octo/hello/contents/docs/guide.md"),
		"testdata/responses/file_text.yml",
	)

	h := &ReadFile{Base: makeBase(rp, nil)}

	res, err := h.Handle(context.Background(), makeToolRequest("read_file", map[string]interface{}{
		"owner": "octo",
		"repo":  "hello",
		"path":  "docs/guide.md",
	}))
	require.NoError(t, err)

	var file FileResult
	resultJSON(t, res, &file)

	assert.Equal(t, 1, repoRule.Count, "the default branch was not resolved")
	assert.Equal(t, 1, fileRule.Count, "no contents request was made")
	assert.Equal(t, "main", file.Ref, "ref must default to the default branch")
	assert.Equal(t, "# Guide\n\nHello.\n", file.Content)
	assert.False(t, file.IsBinary)
	assert.Empty(t, file.ContentBase64)
	assert.Equal(t, 16, file.Size)
	assert.Equal(t, "3d21ec53a331a6f037a91c368710b99387d012c1", file.SHA)
}

func TestReadFileExplicitRef(t *testing.T) {
	rp := &ResponsePlayer{}
	repoRule := rp.AddRule(
		ExactPathMatcher("/repos/octo/hello"),
		"testdata/responses/repo.yml",
	)
	rp.AddRule(
		ExactPathMatcher("/repos/octo/hello/contents/docs/guide.md"),
		"testdata/responses/file_text.yml",
	)

	h := &ReadFile{Base: makeBase(rp, nil)}

	res, err := h.Handle(context.Background(), makeToolRequest("read_file", map[string]interface{}{
		"owner": "octo",
		"repo":  "hello",
		"path":  "docs/guide.md",
		"ref":   "release-1.2",
	}))
	require.NoError(t, err)

	var file FileResult
	resultJSON(t, res, &file)

	assert.Equal(t, 0, repoRule.Count, "an explicit ref must not resolve the default branch")
	assert.Equal(t, "release-1.2", file.Ref)
}

func TestReadFileBinary(t *testing.T) {
	rp := &ResponsePlayer{}
	rp.AddRule(
		ExactPathMatcher("/repos/octo/hello/contents/img/logo.png"),
		"testdata/responses/file_binary.yml",
	)

	h := &ReadFile{Base: makeBase(rp, nil)}

	res, err := h.Handle(context.Background(), makeToolRequest("read_file", map[string]interface{}{
		"owner": "octo",
		"repo":  "hello",
		"path":  "img/logo.png",
		"ref":   "main",
	}))
	require.NoError(t, err)

	var file FileResult
	resultJSON(t, res, &file)

	assert.True(t, file.IsBinary, "non-UTF-8 content must be reported as binary")
	assert.Empty(t, file.Content)
	assert.Equal(t, "iVBORw0KGgo=", file.ContentBase64)
}

func TestReadFileNotFound(t *testing.T) {
	rp := &ResponsePlayer{}
	rp.AddRule(
		ExactPathMatcher("/repos/octo/hello/contents/docs/missing.md"),
		"testdata/responses/file_missing.yml",
	)

	h := &ReadFile{Base: makeBase(rp, nil)}

	res, err := h.Handle(context.Background(), makeToolRequest("read_file", map[string]interface{}{
		"owner": "octo",
		"repo":  "hello",
		"path":  "docs/missing.md",
		"ref":   "main",
	}))
	require.NoError(t, err, "a missing file is a tool error, not a protocol error")

	assert.Contains(t, errorText(t, res), `file "docs/missing.md" does not exist at ref "main"`)
}

func TestReadFileDirectory(t *testing.T) {
	rp := &ResponsePlayer{}
	rp.AddRule(
		ExactPathMatcher("/repos/octo/hello/contents/docs"),
		"testdata/responses/directory.yml",
	)

	h := &ReadFile{Base: makeBase(rp, nil)}

	res, err := h.Handle(context.Background(), makeToolRequest("read_file", map[string]interface{}{
		"owner": "octo",
		"repo":  "hello",
		"path":  "docs",
		"ref":   "main",
	}))
	require.NoError(t, err)

	assert.Contains(t, errorText(t, res), "is a directory, not a file")
}

func TestReadFileMissingArgs(t *testing.T) {
	h := &ReadFile{Base: makeBase(&ResponsePlayer{}, nil)}

	res, err := h.Handle(context.Background(), makeToolRequest("read_file", map[string]interface{}{
		"owner": "octo",
		"repo":  "hello",
	}))
	require.NoError(t, err, "a missing argument is a tool error, not a protocol error")

	assert.True(t, res.IsError)
}
