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

package gormstore

import (
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/database/plugin"
)

// ConnSettings are the connection settings shared by the networked SQL
// plugins. ConnMaxLifetime is in seconds.
type ConnSettings struct {
	Host            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	TimeZone        string
	DSN             string
	Port            uint64
	MaxOpenConns    uint64
	MaxIdleConns    uint64
	ConnMaxLifetime uint64
}

// Pool returns the pool limits described by the settings
func (s ConnSettings) Pool() Pool {
	return Pool{
		MaxOpenConns:    int(min(s.MaxOpenConns, 1<<16)),
		MaxIdleConns:    int(min(s.MaxIdleConns, 1<<16)),
		ConnMaxLifetime: time.Duration(s.ConnMaxLifetime) * time.Second,
	}
}

// ConnFlags binds ConnSettings to plugin options. The registry writes the
// option values straight into the destinations, Settings reads them back.
type ConnFlags struct {
	mu       sync.RWMutex
	engine   string
	values   ConnSettings
	defaults ConnSettings

	// SSLModeHelp describes the ssl-mode option for the engine
	SSLModeHelp string
	// DSNEnvVar overrides the environment variable of the dsn option
	DSNEnvVar string
}

// NewConnFlags returns flags for the named engine, preset to defaults
func NewConnFlags(engine string, defaults ConnSettings) *ConnFlags {
	if defaults.MaxOpenConns == 0 {
		defaults.MaxOpenConns = DefaultMaxOpenConns
	}
	if defaults.MaxIdleConns == 0 {
		defaults.MaxIdleConns = DefaultMaxIdleConns
	}
	if defaults.ConnMaxLifetime == 0 {
		defaults.ConnMaxLifetime = uint64(DefaultConnMaxLifetime / time.Second)
	}
	return &ConnFlags{
		engine:   engine,
		values:   defaults,
		defaults: defaults,
	}
}

// Settings returns a snapshot of the current option values
func (f *ConnFlags) Settings() ConnSettings {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values
}

// Reset restores the defaults
func (f *ConnFlags) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.defaults
}

// PluginOptions returns the option list for plugin registration
func (f *ConnFlags) PluginOptions() []plugin.PluginOption {
	d := f.defaults
	sslHelp := f.SSLModeHelp
	if sslHelp == "" {
		sslHelp = f.engine + " TLS mode"
	}
	str := func(name, desc, def string, dest *string) plugin.PluginOption {
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeString,
			Description:  desc,
			DefaultValue: def,
			Dest:         dest,
		}
	}
	num := func(name, desc string, def uint64, dest *uint64) plugin.PluginOption {
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeUint,
			Description:  desc,
			DefaultValue: def,
			Dest:         dest,
		}
	}
	dsn := str(
		"dsn",
		"Full "+f.engine+" DSN (overrides the other connection options when set)",
		d.DSN,
		&f.values.DSN,
	)
	dsn.CustomEnvVar = f.DSNEnvVar
	return []plugin.PluginOption{
		str("host", f.engine+" host", d.Host, &f.values.Host),
		num("port", f.engine+" port", d.Port, &f.values.Port),
		str("user", f.engine+" user", d.User, &f.values.User),
		str("password", f.engine+" password (required)", d.Password, &f.values.Password),
		str("database", f.engine+" database name", d.Database, &f.values.Database),
		str("ssl-mode", sslHelp, d.SSLMode, &f.values.SSLMode),
		str("timezone", f.engine+" connection time zone", d.TimeZone, &f.values.TimeZone),
		dsn,
		num("max-open-conns", "maximum open connections", d.MaxOpenConns, &f.values.MaxOpenConns),
		num("max-idle-conns", "maximum idle connections", d.MaxIdleConns, &f.values.MaxIdleConns),
		num(
			"conn-max-lifetime",
			"seconds a connection may be reused",
			d.ConnMaxLifetime,
			&f.values.ConnMaxLifetime,
		),
	}
}
