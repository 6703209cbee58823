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
	"strconv"
)

const (
	DefaultV3APIURL = "https://api.github.com/"
)

// Config identifies the GitHub App and installation this process acts as.
// The key material is supplied either inline or as a file path; exactly
// one of the two must be set.
type Config struct {
	V3APIURL string `yaml:"v3_api_url" json:"v3ApiUrl"`

	App AppConfig `yaml:"app" json:"app"`
}

type AppConfig struct {
	ID             int64  `yaml:"id" json:"id"`
	InstallationID int64  `yaml:"installation_id" json:"installationId"`
	PrivateKey     string `yaml:"private_key" json:"privateKey"`
	PrivateKeyPath string `yaml:"private_key_path" json:"privateKeyPath"`
}

// SetValuesFromEnv sets values in the configuration from corresponding
// environment variables, if they exist. The optional prefix is added to
// the start of the environment variable names.
//
// Unlike string values, a numeric variable that does not parse is an
// error: a mistyped App ID must stop the process at startup instead of
// silently authenticating as nothing.
func (c *Config) SetValuesFromEnv(prefix string) error {
	setStringFromEnv("GITHUB_V3_API_URL", prefix, &c.V3APIURL)
	setStringFromEnv("GITHUB_APP_PRIVATE_KEY", prefix, &c.App.PrivateKey)
	setStringFromEnv("GITHUB_APP_PRIVATE_KEY_PATH", prefix, &c.App.PrivateKeyPath)

	if err := setInt64FromEnv("GITHUB_APP_ID", prefix, &c.App.ID); err != nil {
		return err
	}
	if err := setInt64FromEnv("GITHUB_APP_INSTALLATION_ID", prefix, &c.App.InstallationID); err != nil {
		return err
	}
	return nil
}

// Validate checks that the configuration names an App installation and
// exactly one source of key material. It does not parse the key;
// NewTokenManager and NewAppsTransport do that, still before any network
// use.
func (c *Config) Validate() error {
	switch {
	case c.App.ID <= 0:
		return configErrorf("app.id (GITHUB_APP_ID) is required")
	case c.App.InstallationID <= 0:
		return configErrorf("app.installation_id (GITHUB_APP_INSTALLATION_ID) is required")
	case c.App.PrivateKey != "" && c.App.PrivateKeyPath != "":
		return configErrorf("private_key and private_key_path are mutually exclusive")
	case c.App.PrivateKey == "" && c.App.PrivateKeyPath == "":
		return configErrorf("one of private_key (GITHUB_APP_PRIVATE_KEY) or private_key_path (GITHUB_APP_PRIVATE_KEY_PATH) is required")
	}
	return nil
}

// PrivateKeyBytes resolves the configured key material, reading the key
// file if a path was given.
func (c *Config) PrivateKeyBytes() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.App.PrivateKeyPath != "" {
		d, err := os.ReadFile(c.App.PrivateKeyPath)
		if err != nil {
			return nil, configErrorf("failed to read private key file %s: %v", c.App.PrivateKeyPath, err)
		}
		return d, nil
	}
	return []byte(c.App.PrivateKey), nil
}

func setStringFromEnv(key, prefix string, value *string) {
	if v, ok := os.LookupEnv(prefix + key); ok {
		*value = v
	}
}

func setInt64FromEnv(key, prefix string, value *int64) error {
	v, ok := os.LookupEnv(prefix + key)
	if !ok {
		return nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return configErrorf("%s%s must be an integer, got %q", prefix, key, v)
	}
	*value = i
	return nil
}
