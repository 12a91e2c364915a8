// Copyright 2025 Blink Labs Software
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

package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "quorum.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type tempConfig struct {
	Config   yaml.Node                 `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"QUORUM_DATABASE_METADATA_PLUGIN"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"QUORUM_DATABASE_BLOB_PLUGIN"`
	DatabasePath    string `yaml:"databasePath"                                              split_words:"true"`
	BindAddr        string `yaml:"bindAddr"                                                  split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                                           split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"                                                   split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"                                               split_words:"true"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"                                             split_words:"true"`
	EventStream     bool   `yaml:"eventStream"                                               split_words:"true"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to the default
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultShutdownTimeout)
	return d
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".quorum",
		ApiPort:         8080,
		MetricsPort:     12799,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		ShutdownTimeout: DefaultShutdownTimeout,
		EventStream:     true,
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.quorum/quorum.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".quorum", "quorum.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/quorum/quorum.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/quorum/quorum.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	err := envconfig.Process("quorum", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if globalConfig.ApiPort == 0 {
		return nil, fmt.Errorf("invalid apiPort: %d", globalConfig.ApiPort)
	}
	if _, err := time.ParseDuration(globalConfig.ShutdownTimeout); err != nil {
		return nil, fmt.Errorf(
			"invalid shutdownTimeout %q: %w",
			globalConfig.ShutdownTimeout,
			err,
		)
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if !tempCfg.Config.IsZero() {
		// Decoding onto the current config leaves unset keys at their defaults
		if err := tempCfg.Config.Decode(globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			mergePluginSection(
				pluginConfig,
				"blob",
				tempCfg.Database.Blob,
				&globalConfig.BlobPlugin,
			)
		}
		if tempCfg.Database.Metadata != nil {
			mergePluginSection(
				pluginConfig,
				"metadata",
				tempCfg.Database.Metadata,
				&globalConfig.MetadataPlugin,
			)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// mergePluginSection folds a database.<type> section into pluginConfig. A
// "plugin" key selects the plugin, every map-valued key holds the options of
// the plugin it names.
func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]any,
	selected *string,
) {
	if pluginVal, exists := section["plugin"]; exists {
		if pluginName, ok := pluginVal.(string); ok {
			*selected = pluginName
		}
	}
	options := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			options[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			options[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = options
	} else {
		maps.Copy(pluginConfig[pluginType], options)
	}
}

func GetConfig() *Config {
	return globalConfig
}
