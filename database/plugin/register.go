// Copyright 2026 Blink Labs Software
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

package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

// PluginOption describes a single configurable option of a plugin. Dest must
// point at a variable of the Go type matching Type. CustomEnvVar replaces the
// generated environment variable name when set.
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	CustomEnvVar string
	Type         PluginOptionType
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries   []PluginEntry
	pluginEntriesMu sync.RWMutex
)

// Register adds a plugin to the registry. It is normally called from a
// plugin package's init()
func Register(pluginEntry PluginEntry) {
	pluginEntriesMu.Lock()
	defer pluginEntriesMu.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns all registered plugins of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMu.RLock()
	defer pluginEntriesMu.RUnlock()
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	return ret
}

// GetPlugin returns a new instance of the named plugin, or nil if it is not registered
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	entry := findEntry(pluginType, pluginName)
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc()
}

func findEntry(pluginType PluginType, pluginName string) *PluginEntry {
	pluginEntriesMu.RLock()
	defer pluginEntriesMu.RUnlock()
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType &&
			pluginEntries[i].Name == pluginName {
			return &pluginEntries[i]
		}
	}
	return nil
}

func optionFlagName(p PluginEntry, opt PluginOption) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(p.Type),
		p.Name,
		opt.Name,
	)
}

func optionEnvName(p PluginEntry, opt PluginOption) string {
	if opt.CustomEnvVar != "" {
		return opt.CustomEnvVar
	}
	return strings.ToUpper(
		strings.ReplaceAll(optionFlagName(p, opt), "-", "_"),
	)
}

// PopulateCmdlineOptions adds a flag for every registered plugin option,
// named <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMu.RLock()
	defer pluginEntriesMu.RUnlock()
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			flagName := optionFlagName(p, opt)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				if !ok || dest == nil {
					return fmt.Errorf("invalid destination for option %s", flagName)
				}
				def, _ := opt.DefaultValue.(string)
				fs.StringVar(dest, flagName, def, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				if !ok || dest == nil {
					return fmt.Errorf("invalid destination for option %s", flagName)
				}
				def, _ := opt.DefaultValue.(bool)
				fs.BoolVar(dest, flagName, def, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				if !ok || dest == nil {
					return fmt.Errorf("invalid destination for option %s", flagName)
				}
				def, _ := opt.DefaultValue.(int)
				fs.IntVar(dest, flagName, def, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				if !ok || dest == nil {
					return fmt.Errorf("invalid destination for option %s", flagName)
				}
				def, _ := opt.DefaultValue.(uint64)
				fs.Uint64Var(dest, flagName, def, opt.Description)
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					flagName,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables named
// <TYPE>_<PLUGIN>_<OPTION>
func ProcessEnvVars() error {
	pluginEntriesMu.RLock()
	entries := make([]PluginEntry, len(pluginEntries))
	copy(entries, pluginEntries)
	pluginEntriesMu.RUnlock()
	for _, p := range entries {
		for _, opt := range p.Options {
			envName := optionEnvName(p, opt)
			raw, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			value, err := parseOptionValue(opt.Type, raw)
			if err != nil {
				return fmt.Errorf("environment variable %s: %w", envName, err)
			}
			if err := assignOption(opt, value); err != nil {
				return fmt.Errorf("environment variable %s: %w", envName, err)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a config file section shaped as
// type -> plugin name -> option name -> value
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	pluginEntriesMu.RLock()
	entries := make([]PluginEntry, len(pluginEntries))
	copy(entries, pluginEntries)
	pluginEntriesMu.RUnlock()
	for _, p := range entries {
		typeConfig, ok := pluginConfig[PluginTypeName(p.Type)]
		if !ok {
			continue
		}
		optionValues, ok := typeConfig[p.Name]
		if !ok {
			continue
		}
		for _, opt := range p.Options {
			value, ok := optionValues[opt.Name]
			if !ok {
				continue
			}
			if err := assignOption(opt, coerceOptionValue(opt.Type, value)); err != nil {
				return fmt.Errorf(
					"%s plugin '%s' option %s: %w",
					PluginTypeName(p.Type),
					p.Name,
					opt.Name,
					err,
				)
			}
		}
	}
	return nil
}

// SetPluginOption sets the value of a named option for a plugin entry. It
// must be called before the plugin is instantiated. Unknown options are
// ignored so callers can set options that only some implementations have.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	entry := findEntry(pluginType, pluginName)
	if entry == nil {
		return fmt.Errorf(
			"%s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			ErrPluginNotFound,
		)
	}
	for _, opt := range entry.Options {
		if opt.Name != optionName {
			continue
		}
		return assignOption(opt, value)
	}
	return nil
}

func parseOptionValue(optType PluginOptionType, raw string) (any, error) {
	switch optType {
	case PluginOptionTypeString:
		return raw, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(raw)
	case PluginOptionTypeInt:
		return strconv.Atoi(raw)
	case PluginOptionTypeUint:
		return strconv.ParseUint(raw, 10, 64)
	default:
		return nil, fmt.Errorf("unknown plugin option type %d", optType)
	}
}

// coerceOptionValue converts the numeric types produced by YAML decoding
func coerceOptionValue(optType PluginOptionType, value any) any {
	switch optType {
	case PluginOptionTypeUint:
		switch v := value.(type) {
		case int:
			if v >= 0 {
				return uint64(v)
			}
		case uint:
			return uint64(v)
		}
	case PluginOptionTypeInt:
		if v, ok := value.(uint64); ok {
			return int(v) //nolint:gosec
		}
	}
	return value
}

func assignOption(opt PluginOption, value any) error {
	switch opt.Type {
	case PluginOptionTypeString:
		return assignTyped[string](opt, value, "string")
	case PluginOptionTypeBool:
		return assignTyped[bool](opt, value, "bool")
	case PluginOptionTypeInt:
		return assignTyped[int](opt, value, "int")
	case PluginOptionTypeUint:
		if v, ok := value.(int); ok {
			if v < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", opt.Name)
			}
			value = uint64(v)
		}
		return assignTyped[uint64](opt, value, "uint64")
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			opt.Type,
			opt.Name,
		)
	}
}

func assignTyped[T any](opt PluginOption, value any, typeName string) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf(
			"invalid type for option %s: expected %s",
			opt.Name,
			typeName,
		)
	}
	dest, ok := opt.Dest.(*T)
	if !ok || dest == nil {
		return fmt.Errorf(
			"invalid destination for option %s: expected *%s",
			opt.Name,
			typeName,
		)
	}
	*dest = v
	return nil
}
