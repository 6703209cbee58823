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
	"os"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/palantir/agent-bot/appauth"
	"github.com/palantir/agent-bot/server/handler"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultEnvPrefix = "AGENTBOT_"
)

type Config struct {
	Logging LoggingConfig       `yaml:"logging"`
	Cache   CachingConfig       `yaml:"cache"`
	Github  appauth.Config      `yaml:"github"`
	Options handler.ToolOptions `yaml:"options"`
	Metrics MetricsConfig       `yaml:"metrics"`

	GithubTimeout time.Duration `yaml:"github_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Text  bool   `yaml:"text" json:"text"`
}

func (c *LoggingConfig) SetValuesFromEnv(prefix string) {
	if v, ok := os.LookupEnv(prefix + "LOG_LEVEL"); ok {
		c.Level = v
	}
	if v, ok := os.LookupEnv(prefix + "LOG_TEXT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Text = b
		}
	}
}

type CachingConfig struct {
	Disabled bool              `yaml:"disabled"`
	MaxSize  datasize.ByteSize `yaml:"max_size"`
}

type MetricsConfig struct {
	// LogInterval enables periodic metric dumps to the log when set.
	LogInterval time.Duration `yaml:"log_interval"`
}

// ParseConfig loads configuration from optional yaml bytes, then merges
// in values from the environment. Credentials come from the unprefixed
// GITHUB_APP_* variables so that the same settings work across tools.
func ParseConfig(bytes []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(bytes, &c); err != nil {
		return nil, errors.Wrapf(err, "failed unmarshalling yaml")
	}

	envPrefix := DefaultEnvPrefix
	if v, ok := os.LookupEnv("AGENTBOT_ENV_PREFIX"); ok {
		envPrefix = v
	}

	c.Options.SetValuesFromEnv(envPrefix + "OPTIONS_")
	c.Logging.SetValuesFromEnv(envPrefix)
	if err := c.Github.SetValuesFromEnv(""); err != nil {
		return nil, err
	}

	return &c, nil
}
