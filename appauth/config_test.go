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
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.App.ID = 1
		c.App.InstallationID = 2
		c.App.PrivateKey = "key material"
		return c
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missingAppID", func(t *testing.T) {
		c := valid()
		c.App.ID = 0
		assertConfigError(t, c.Validate(), "app.id")
	})

	t.Run("missingInstallationID", func(t *testing.T) {
		c := valid()
		c.App.InstallationID = 0
		assertConfigError(t, c.Validate(), "installation_id")
	})

	t.Run("bothKeySources", func(t *testing.T) {
		c := valid()
		c.App.PrivateKeyPath = "/somewhere/key.pem"
		assertConfigError(t, c.Validate(), "mutually exclusive")
	})

	t.Run("noKeySource", func(t *testing.T) {
		c := valid()
		c.App.PrivateKey = ""
		assertConfigError(t, c.Validate(), "required")
	})
}

func TestSetValuesFromEnv(t *testing.T) {
	t.Run("setsValues", func(t *testing.T) {
		t.Setenv("GITHUB_APP_ID", "1234")
		t.Setenv("GITHUB_APP_INSTALLATION_ID", "5678")
		t.Setenv("GITHUB_APP_PRIVATE_KEY", "inline key")
		t.Setenv("GITHUB_V3_API_URL", "https://github.example.com/api/v3/")

		var c Config
		require.NoError(t, c.SetValuesFromEnv(""))

		assert.Equal(t, int64(1234), c.App.ID)
		assert.Equal(t, int64(5678), c.App.InstallationID)
		assert.Equal(t, "inline key", c.App.PrivateKey)
		assert.Equal(t, "https://github.example.com/api/v3/", c.V3APIURL)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Setenv("TEST_GITHUB_APP_ID", "99")

		var c Config
		require.NoError(t, c.SetValuesFromEnv("TEST_"))
		assert.Equal(t, int64(99), c.App.ID)
	})

	t.Run("preservesExistingValues", func(t *testing.T) {
		var c Config
		c.App.ID = 42
		require.NoError(t, c.SetValuesFromEnv(""))
		assert.Equal(t, int64(42), c.App.ID, "unset variables should not clear existing values")
	})

	t.Run("malformedID", func(t *testing.T) {
		t.Setenv("GITHUB_APP_ID", "not-a-number")

		var c Config
		assertConfigError(t, c.SetValuesFromEnv(""), "must be an integer")
	})
}

func TestPrivateKeyBytes(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		c := &Config{}
		c.App.ID = 1
		c.App.InstallationID = 2
		c.App.PrivateKey = "inline key"

		d, err := c.PrivateKeyBytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("inline key"), d)
	})

	t.Run("fromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.pem")
		require.NoError(t, os.WriteFile(path, []byte("file key"), 0600))

		c := &Config{}
		c.App.ID = 1
		c.App.InstallationID = 2
		c.App.PrivateKeyPath = path

		d, err := c.PrivateKeyBytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("file key"), d)
	})

	t.Run("missingFile", func(t *testing.T) {
		c := &Config{}
		c.App.ID = 1
		c.App.InstallationID = 2
		c.App.PrivateKeyPath = filepath.Join(t.TempDir(), "nope.pem")

		_, err := c.PrivateKeyBytes()
		assertConfigError(t, err, "failed to read private key file")
	})
}

func assertConfigError(t *testing.T, err error, contains string) {
	t.Helper()

	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr), "expected a ConfigError, got %T: %v", err, err)
	assert.Contains(t, cerr.Error(), contains)
}
