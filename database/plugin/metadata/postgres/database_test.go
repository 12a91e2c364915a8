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

package postgres

import (
	"os"
	"testing"
	"time"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/blinklabs-io/quorum/database/plugin/metadata/internal/gormstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(5432), m.port)
	assert.Equal(t, "quorum", m.user)
	assert.Equal(t, "quorum", m.database)
	assert.Equal(t, "disable", m.sslMode)
	assert.Equal(t, "UTC", m.timeZone)
	assert.NotNil(t, m.logger)
	// Close before Start is a no-op
	require.NoError(t, m.Close())
}

func TestConnString(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPort(6543),
		WithUser("quorum"),
		WithPassword("secret"),
		WithDatabase("approvals"),
		WithSSLMode("require"),
		WithTimeZone("Europe/Berlin"),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"host=db.local user=quorum password=secret dbname=approvals port=6543 sslmode=require TimeZone=Europe/Berlin",
		m.connString(),
	)

	WithDSN("  postgres://quorum@db.local/approvals  ")(m)
	assert.Equal(t, "postgres://quorum@db.local/approvals", m.connString())
}

func TestCmdlineSettings(t *testing.T) {
	defer cmdlineFlags.Reset()
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "postgres", "host", "pg.internal"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "postgres", "max-open-conns", uint64(8)))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "postgres", "conn-max-lifetime", uint64(90)))

	p := NewFromCmdlineOptions()
	m, ok := p.(*MetadataStorePostgres)
	require.True(t, ok)
	assert.Equal(t, "pg.internal", m.host)
	assert.Equal(t, uint(5432), m.port)
	assert.Equal(t, "quorum", m.database)
	assert.Equal(t, 8, m.pool.MaxOpenConns)
	assert.Equal(t, gormstore.DefaultMaxIdleConns, m.pool.MaxIdleConns)
	assert.Equal(t, 90*time.Second, m.pool.ConnMaxLifetime)
}

func TestConnStringSkipsEmpty(t *testing.T) {
	m, err := NewWithOptions(WithPassword(""), WithPort(5433))
	require.NoError(t, err)
	assert.Equal(
		t,
		"host=localhost user=quorum dbname=quorum port=5433 sslmode=disable TimeZone=UTC",
		m.connString(),
	)
}

// TestLiveApproverQueries runs the recursive queries against a real server
// when QUORUM_TEST_POSTGRES_DSN is set
func TestLiveApproverQueries(t *testing.T) {
	dsn := os.Getenv("QUORUM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUORUM_TEST_POSTGRES_DSN not set")
	}
	m, err := NewWithOptions(WithDSN(dsn))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Close() //nolint:errcheck

	txnID := uint(1<<31 - 7)
	threshold := uint(1)
	root := &models.TransactionApprover{TransactionID: &txnID, Threshold: &threshold}
	require.NoError(t, m.CreateApprover(root, nil))
	userID := uint(11)
	leaf := &models.TransactionApprover{ListID: &root.ID, UserID: &userID}
	require.NoError(t, m.CreateApprover(leaf, nil))

	got, err := m.GetApproverRoot(leaf.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ID)

	rows, err := m.GetApproversByTransaction(txnID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	count, err := m.DeleteApproverSubtree(root.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
