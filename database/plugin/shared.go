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
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Plugins built from cmdline options have no constructor arguments, so the
// process-wide logger and metrics registry are handed to them from here
var (
	sharedLogger       *slog.Logger
	sharedPromRegistry prometheus.Registerer
	sharedMutex        sync.RWMutex
)

// SetLogger sets the logger used by plugins created after this call
func SetLogger(logger *slog.Logger) {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()
	sharedLogger = logger
}

// Logger returns the shared plugin logger, which discards output when unset
func Logger() *slog.Logger {
	sharedMutex.RLock()
	defer sharedMutex.RUnlock()
	if sharedLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return sharedLogger
}

// SetPromRegistry sets the metrics registry used by plugins created after this call
func SetPromRegistry(registry prometheus.Registerer) {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()
	sharedPromRegistry = registry
}

// PromRegistry returns the shared metrics registry, or nil when unset
func PromRegistry() prometheus.Registerer {
	sharedMutex.RLock()
	defer sharedMutex.RUnlock()
	return sharedPromRegistry
}
