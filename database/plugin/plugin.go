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

package plugin

import (
	"errors"
	"fmt"
)

// ErrPluginNotFound is returned for a plugin name missing from the registry
var ErrPluginNotFound = errors.New("plugin not found")

type Plugin interface {
	Start() error
	Stop() error
}

// ErrorPlugin stands in for a plugin whose construction failed. Start
// reports the construction error.
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin builds the named plugin from its registered options and
// starts it
func StartPlugin(pluginType PluginType, pluginName string) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			ErrPluginNotFound,
		)
	}
	if err := p.Start(); err != nil {
		// Construction errors carry no resources, anything else may
		if _, ok := p.(*ErrorPlugin); !ok {
			_ = p.Stop()
		}
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}
