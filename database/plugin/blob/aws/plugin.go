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

package aws

import (
	"sync"

	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/blinklabs-io/quorum/database/plugin/blob/objectstore"
)

var (
	cmdlineOptions struct {
		objects   objectstore.Flags
		endpoint  string
		region    string
		pathStyle bool
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	options := append(
		cmdlineOptions.objects.PluginOptions("S3"),
		plugin.PluginOption{
			Name:         "region",
			Type:         plugin.PluginOptionTypeString,
			Description:  "AWS region, taken from the environment when empty",
			DefaultValue: "",
			Dest:         &(cmdlineOptions.region),
		},
		plugin.PluginOption{
			Name:         "endpoint",
			Type:         plugin.PluginOptionTypeString,
			Description:  "endpoint of an S3 compatible server",
			DefaultValue: "",
			Dest:         &(cmdlineOptions.endpoint),
		},
		plugin.PluginOption{
			Name:         "path-style",
			Type:         plugin.PluginOptionTypeBool,
			Description:  "address the bucket in the path, implied by endpoint",
			DefaultValue: false,
			Dest:         &(cmdlineOptions.pathStyle),
		},
	)
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "s3",
			Description:        "AWS S3 or S3 compatible object storage",
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
		WithRegion(flags.region),
		WithEndpoint(flags.endpoint),
		WithPathStyle(flags.pathStyle),
		WithLogger(plugin.Logger()),
		WithPromRegistry(plugin.PromRegistry()),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
