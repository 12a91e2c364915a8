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

package badger

import (
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/database/plugin"
)

// Transaction bodies are small, so the caches stay modest
const (
	DefaultBlockCacheSize = 64 << 20
	DefaultIndexCacheSize = 32 << 20
	DefaultGcInterval     = 5 * time.Minute
	DefaultGcDiscardRatio = 0.5
)

type badgerFlags struct {
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
	gcMinutes      uint64
	gcEnabled      bool
}

var (
	defaultFlags = badgerFlags{
		dataDir:        ".quorum",
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
		gcMinutes:      uint64(DefaultGcInterval / time.Minute),
		gcEnabled:      true,
	}
	cmdlineOptions      = defaultFlags
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local key-value store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory for badger storage, in-memory when empty",
					DefaultValue: defaultFlags.dataDir,
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger block cache size in bytes",
					DefaultValue: defaultFlags.blockCacheSize,
					Dest:         &(cmdlineOptions.blockCacheSize),
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger index cache size in bytes",
					DefaultValue: defaultFlags.indexCacheSize,
					Dest:         &(cmdlineOptions.indexCacheSize),
				},
				{
					Name:         "gc",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "Enable value log garbage collection",
					DefaultValue: defaultFlags.gcEnabled,
					Dest:         &(cmdlineOptions.gcEnabled),
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Minutes between value log garbage collection runs",
					DefaultValue: defaultFlags.gcMinutes,
					Dest:         &(cmdlineOptions.gcMinutes),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	flags := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	p, err := New(
		WithDataDir(flags.dataDir),
		WithBlockCacheSize(flags.blockCacheSize),
		WithIndexCacheSize(flags.indexCacheSize),
		WithGc(flags.gcEnabled),
		WithGcInterval(time.Duration(flags.gcMinutes)*time.Minute),
		WithLogger(plugin.Logger()),
		WithPromRegistry(plugin.PromRegistry()),
	)
	if err != nil {
		// Start reports the error
		return plugin.NewErrorPlugin(err)
	}
	return p
}
