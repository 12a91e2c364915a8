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

package mysql

import (
	"os"
	"testing"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAndConnString(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPassword("secret"),
		WithSSLMode("skip-verify"),
	)
	require.NoError(t, err)
	assert.Equal(t, uint(3306), m.port)
	assert.Equal(t, "root", m.user)
	assert.Equal(t, "quorum", m.database)

	cfg, err := mysql.ParseDSN(m.connString())
	require.NoError(t, err)
	assert.Equal(t, "db.local:3306", cfg.Addr)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "quorum", cfg.DBName)
	assert.Equal(t, "skip-verify", cfg.TLSConfig)
	assert.True(t, cfg.ParseTime)

	WithDSN(" app:pw@tcp(other:3307)/approvals ")(m)
	assert.Equal(t, "app:pw@tcp(other:3307)/approvals", m.connString())
	// Close before Start is a no-op
	require.NoError(t, m.Close())
}

func TestStartInvalidDSN(t *testing.T) {
	m, err := NewWithOptions(WithDSN("not a dsn"))
	require.NoError(t, err)
	require.Error(t, m.Start())
}

func TestCmdlineSettings(t *testing.T) {
	defer cmdlineFlags.Reset()
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "mysql", "user", "approver"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "mysql", "max-idle-conns", uint64(500)))

	m, ok := NewFromCmdlineOptions().(*MetadataStoreMysql)
	require.True(t, ok)
	assert.Equal(t, "approver", m.user)
	assert.Equal(t, "quorum", m.database)
	assert.Equal(t, 500, m.pool.MaxIdleConns)
	assert.Equal(t, 100, m.pool.MaxOpenConns)
}

// TestLiveApproverQueries runs the MySQL statement variants against a real
// server when QUORUM_TEST_MYSQL_DSN is set
func TestLiveApproverQueries(t *testing.T) {
	dsn := os.Getenv("QUORUM_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("QUORUM_TEST_MYSQL_DSN not set")
	}
	m, err := NewWithOptions(WithDSN(dsn))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Close() //nolint:errcheck

	txnID := uint(1<<31 - 11)
	threshold := uint(1)
	root := &models.TransactionApprover{TransactionID: &txnID, Threshold: &threshold}
	require.NoError(t, m.CreateApprover(root, nil))
	userID := uint(11)
	leaf := &models.TransactionApprover{ListID: &root.ID, UserID: &userID}
	require.NoError(t, m.CreateApprover(leaf, nil))

	count, err := m.DeleteApproverSubtree(root.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rows, err := m.GetApproversByTransaction(txnID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
