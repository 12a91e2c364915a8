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

package server_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/quorum/internal/config"
	"github.com/blinklabs-io/quorum/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		BindAddr:        "127.0.0.1",
		BlobPlugin:      config.DefaultBlobPlugin,
		MetadataPlugin:  config.DefaultMetadataPlugin,
		ShutdownTimeout: "5s",
		EventStream:     true,
	}
}

func TestServeAndShutdown(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s, err := server.New(testConfig(), logger)
	require.NoError(t, err)
	assert.Nil(t, s.MetricsAddr())

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(ctx)
	}()

	resp, err := http.Get("http://" + s.ApiAddr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := server.New(nil, nil)
	assert.Error(t, err)
}

func TestNewUnknownPlugin(t *testing.T) {
	cfg := testConfig()
	cfg.MetadataPlugin = "nosuchstore"
	_, err := server.New(cfg, nil)
	assert.Error(t, err)
}
