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

package sqlite

import (
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/database/plugin"
)

const defaultDataDir = ".quorum"

var (
	cmdlineOptions struct {
		dataDir       string
		vacuumHours   uint64
		busyTimeoutMs uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	cmdlineOptions.dataDir = defaultDataDir
	cmdlineOptions.vacuumHours = uint64(DefaultVacuumInterval / time.Hour)
	cmdlineOptions.busyTimeoutMs = uint64(DefaultBusyTimeout / time.Millisecond)
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory for sqlite storage, in-memory when empty",
					DefaultValue: defaultDataDir,
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "vacuum-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Hours between VACUUM runs, 0 disables",
					DefaultValue: cmdlineOptions.vacuumHours,
					Dest:         &(cmdlineOptions.vacuumHours),
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Milliseconds to wait on a locked database",
					DefaultValue: cmdlineOptions.busyTimeoutMs,
					Dest:         &(cmdlineOptions.busyTimeoutMs),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []SqliteOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithVacuumInterval(time.Duration(cmdlineOptions.vacuumHours) * time.Hour),
		WithBusyTimeout(time.Duration(cmdlineOptions.busyTimeoutMs) * time.Millisecond),
	}
	cmdlineOptionsMutex.RUnlock()
	opts = append(
		opts,
		WithLogger(plugin.Logger()),
		WithPromRegistry(plugin.PromRegistry()),
	)
	p, err := NewWithOptions(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
