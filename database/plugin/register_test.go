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

package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlugin struct{}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func TestRegisterAndGetPlugin(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	p := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName)
	require.NotNil(t, p)
	assert.IsType(t, &mockPlugin{}, p)

	// Same name under another type is a different plugin
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, pluginName))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "non-existent-"+t.Name()))
}

func TestGetPlugins(t *testing.T) {
	blobName := "blob-test-" + t.Name()
	metaName := "meta-test-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               blobName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               metaName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	names := func(entries []plugin.PluginEntry) []string {
		ret := make([]string, 0, len(entries))
		for _, e := range entries {
			ret = append(ret, e.Name)
		}
		return ret
	}
	blobNames := names(plugin.GetPlugins(plugin.PluginTypeBlob))
	metaNames := names(plugin.GetPlugins(plugin.PluginTypeMetadata))
	assert.Contains(t, blobNames, blobName)
	assert.NotContains(t, blobNames, metaName)
	assert.Contains(t, metaNames, metaName)
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := plugin.StartPlugin(plugin.PluginTypeMetadata, "missing-"+t.Name())
	require.ErrorIs(t, err, plugin.ErrPluginNotFound)
	assert.Contains(t, err.Error(), "metadata plugin")

	err = plugin.SetPluginOption(plugin.PluginTypeBlob, "missing-"+t.Name(), "data-dir", "x")
	require.ErrorIs(t, err, plugin.ErrPluginNotFound)
}
