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

package objectstore

import (
	"time"

	"github.com/blinklabs-io/quorum/database/plugin"
)

// Flags are the command line settings shared by the object store plugins
type Flags struct {
	Bucket string
	Prefix string
	// TimeoutSeconds bounds each backend call, 0 means DefaultTimeout
	TimeoutSeconds uint64
}

// Timeout returns the configured call timeout
func (f Flags) Timeout() time.Duration {
	if f.TimeoutSeconds == 0 {
		return DefaultTimeout
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// PluginOptions returns the bucket, prefix and timeout options bound to f
func (f *Flags) PluginOptions(service string) []plugin.PluginOption {
	return []plugin.PluginOption{
		{
			Name:         "bucket",
			Type:         plugin.PluginOptionTypeString,
			Description:  service + " bucket name (required)",
			DefaultValue: "",
			Dest:         &f.Bucket,
		},
		{
			Name:         "prefix",
			Type:         plugin.PluginOptionTypeString,
			Description:  "object name prefix",
			DefaultValue: "",
			Dest:         &f.Prefix,
		},
		{
			Name:         "timeout",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "seconds allowed for each " + service + " call",
			DefaultValue: uint64(DefaultTimeout / time.Second),
			Dest:         &f.TimeoutSeconds,
		},
	}
}
