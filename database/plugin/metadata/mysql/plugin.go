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

package mysql

import (
	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/blinklabs-io/quorum/database/plugin/metadata/internal/gormstore"
)

var cmdlineFlags = gormstore.NewConnFlags(
	"MySQL",
	gormstore.ConnSettings{
		Host:     defaultHost,
		Port:     defaultPort,
		User:     defaultUser,
		Database: defaultDatabase,
		TimeZone: defaultTimeZone,
	},
)

func init() {
	cmdlineFlags.SSLModeHelp = "MySQL tls parameter (true, false, skip-verify, preferred)"
	cmdlineFlags.DSNEnvVar = "MYSQL_DSN"
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL relational database, the schema is created when missing",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            cmdlineFlags.PluginOptions(),
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	p, err := NewWithOptions(
		WithSettings(cmdlineFlags.Settings()),
		WithLogger(plugin.Logger()),
		WithPromRegistry(plugin.PromRegistry()),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
