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

package gcs

import (
	"sync"

	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/blinklabs-io/quorum/database/plugin/blob/objectstore"
)

var (
	cmdlineOptions struct {
		objects         objectstore.Flags
		credentialsFile string
		endpoint        string
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	options := append(
		cmdlineOptions.objects.PluginOptions("GCS"),
		plugin.PluginOption{
			Name:         "credentials-file",
			Type:         plugin.PluginOptionTypeString,
			Description:  "service account key file, application default credentials when empty",
			DefaultValue: "",
			Dest:         &(cmdlineOptions.credentialsFile),
		},
		plugin.PluginOption{
			Name:         "endpoint",
			Type:         plugin.PluginOptionTypeString,
			Description:  "storage emulator endpoint, requests are sent unauthenticated",
			DefaultValue: "",
			Dest:         &(cmdlineOptions.endpoint),
		},
	)
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "Google Cloud Storage object storage",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            options,
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	flags := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	p, err := NewWithOptions(
		WithBucket(flags.objects.Bucket),
		WithPrefix(flags.objects.Prefix),
		WithTimeout(flags.objects.Timeout()),
		WithCredentialsFile(flags.credentialsFile),
		WithEndpoint(flags.endpoint),
		WithLogger(plugin.Logger()),
		WithPromRegistry(plugin.PromRegistry()),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
