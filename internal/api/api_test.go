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

package api_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/internal/api"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const creator = 100

type testEnv struct {
	t        *testing.T
	db       *database.Database
	bus      *event.EventBus
	server   *httptest.Server
	txID     uint
	txBody   []byte
	privKeys map[uint]ed25519.PrivateKey
	keyIDs   map[uint]uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	svc, err := approval.NewDatabaseService(db, nil, nil)
	require.NoError(t, err)
	a, err := api.New(api.Config{
		Service:      svc,
		EventBus:     bus,
		PromRegistry: prometheus.NewRegistry(),
		EventStream:  true,
	})
	require.NoError(t, err)
	env := &testEnv{
		t:        t,
		db:       db,
		bus:      bus,
		server:   httptest.NewServer(a.Handler()),
		txBody:   []byte("transaction body"),
		privKeys: make(map[uint]ed25519.PrivateKey),
		keyIDs:   make(map[uint]uint),
	}
	// Cleanups run last in, first out
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	t.Cleanup(bus.Stop)
	t.Cleanup(env.server.Close)
	tx := &models.Transaction{
		CreatorID: creator,
		Status:    models.TransactionStatusWaitingForSignatures,
		Body:      env.txBody,
	}
	require.NoError(t, db.SetTransaction(tx, nil))
	env.txID = tx.ID
	return env
}

func (e *testEnv) do(
	method string,
	path string,
	userID uint,
	body string,
) (int, []byte) {
	e.t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(e.t, err)
	// No idle connections outlive a request
	req.Close = true
	if userID != 0 {
		req.Header.Set("X-User-Id", fmt.Sprint(userID))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, buf.Bytes()
}

func (e *testEnv) approversPath(suffix string) string {
	return fmt.Sprintf("/transactions/%d/approvers%s", e.txID, suffix)
}

func (e *testEnv) key(userID uint) uint {
	e.t.Helper()
	if keyID, ok := e.keyIDs[userID]; ok {
		return keyID
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(e.t, err)
	key := &models.UserKey{UserID: userID, PublicKey: pub}
	require.NoError(e.t, e.db.AddUserKey(key, nil))
	e.privKeys[key.ID] = priv
	e.keyIDs[userID] = key.ID
	return key.ID
}

func (e *testEnv) approveBody(userID uint, approved bool) string {
	keyID := e.key(userID)
	sig := ed25519.Sign(e.privKeys[keyID], e.txBody)
	return fmt.Sprintf(
		`{"userKeyId":%d,"signature":"0x%s","approved":%t}`,
		keyID,
		hex.EncodeToString(sig),
		approved,
	)
}

type approverJSON struct {
	ID            uint  `json:"id"`
	TransactionID *uint `json:"transactionId"`
	ListID        *uint `json:"listId"`
	UserID        *uint `json:"userId"`
	Threshold     *uint `json:"threshold"`
	Approved      *bool `json:"approved"`
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(http.MethodGet, "/healthz", 0, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	status, _ := env.do(http.MethodGet, env.approversPath(""), 0, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestApproverLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, updates := env.bus.Subscribe(event.TransactionUpdateEventType)

	status, body := env.do(
		http.MethodPost,
		env.approversPath(""),
		creator,
		`{"approversArray":[{"threshold":2,"approvers":[{"userId":1},{"userId":2},{"userId":3}]}]}`,
	)
	require.Equal(t, http.StatusCreated, status, string(body))
	var created []approverJSON
	require.NoError(t, json.Unmarshal(body, &created))
	require.Len(t, created, 4)
	root := created[0]
	assert.Equal(t, env.txID, *root.TransactionID)
	assert.Equal(t, uint(2), *root.Threshold)

	select {
	case evt := <-updates:
		assert.Equal(t, event.TransactionEvent{EntityIDs: []uint{env.txID}}, evt.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("no update event published")
	}

	// The approver can see the tree
	status, body = env.do(http.MethodGet, env.approversPath("?view=tree"), 2, "")
	require.Equal(t, http.StatusOK, status)
	var tree []*approval.TreeNode
	require.NoError(t, json.Unmarshal(body, &tree))
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Approvers, 3)

	status, _ = env.do(http.MethodGet, env.approversPath("?view=graph"), 2, "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(http.MethodGet, env.approversPath(""), 55, "")
	assert.Equal(t, http.StatusForbidden, status)

	// Detach the third leaf
	status, body = env.do(
		http.MethodPatch,
		env.approversPath(fmt.Sprintf("/%d", created[3].ID)),
		creator,
		`{"listId":null}`,
	)
	require.Equal(t, http.StatusOK, status, string(body))
	var detached approverJSON
	require.NoError(t, json.Unmarshal(body, &detached))
	assert.Nil(t, detached.ListID)
	assert.Equal(t, env.txID, *detached.TransactionID)

	status, _ = env.do(
		http.MethodPatch,
		env.approversPath(fmt.Sprintf("/%d", root.ID)),
		creator,
		`{"threshold":1,"userId":4}`,
	)
	assert.Equal(t, http.StatusBadRequest, status)
	status, body = env.do(
		http.MethodPatch,
		env.approversPath(fmt.Sprintf("/%d", root.ID)),
		creator,
		`{"thresh":1}`,
	)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "invalid request body")

	status, _ = env.do(
		http.MethodDelete,
		env.approversPath(fmt.Sprintf("/%d", created[3].ID)),
		creator,
		"",
	)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(
		http.MethodDelete,
		env.approversPath(fmt.Sprintf("/%d", created[3].ID)),
		creator,
		"",
	)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(http.MethodGet, env.approversPath(""), creator, "")
	require.Equal(t, http.StatusOK, status)
	var rows []approverJSON
	require.NoError(t, json.Unmarshal(body, &rows))
	assert.Len(t, rows, 3)
}

func TestCreateErrors(t *testing.T) {
	env := newTestEnv(t)
	testDefs := []struct {
		name   string
		path   string
		user   uint
		body   string
		status int
		kind   string
	}{
		{"empty node", env.approversPath(""), creator, `{"approversArray":[{}]}`, http.StatusBadRequest, "structural"},
		{"not creator", env.approversPath(""), 7, `{"approversArray":[{"userId":1}]}`, http.StatusForbidden, "authorization"},
		{"unknown transaction", "/transactions/999/approvers", creator, `{"approversArray":[{"userId":1}]}`, http.StatusNotFound, "not-found"},
		{"bad body", env.approversPath(""), creator, `{"approvers":`, http.StatusBadRequest, ""},
		{"unknown field", env.approversPath(""), creator, `{"nodes":[]}`, http.StatusBadRequest, ""},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			status, body := env.do(http.MethodPost, testDef.path, testDef.user, testDef.body)
			assert.Equal(t, testDef.status, status, string(body))
			var resp struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, testDef.kind, resp.Kind)
		})
	}
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t)
	_, statusUpdates := env.bus.Subscribe(event.TransactionStatusUpdateEventType)
	status, body := env.do(
		http.MethodPost,
		env.approversPath(""),
		creator,
		`{"approversArray":[{"userId":1}]}`,
	)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(http.MethodPost, env.approversPath("/approve"), 1, `{"userKeyId":1}`)
	assert.Equal(t, http.StatusBadRequest, status, string(body))
	status, _ = env.do(
		http.MethodPost,
		env.approversPath("/approve"),
		1,
		`{"userKeyId":1,"signature":"zz","approved":true}`,
	)
	assert.Equal(t, http.StatusBadRequest, status)

	// A key of another user is declined
	other := env.key(2)
	status, body = env.do(
		http.MethodPost,
		env.approversPath("/approve"),
		1,
		fmt.Sprintf(`{"userKeyId":%d,"signature":"00","approved":true}`, other),
	)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"recorded":false,"reason":"key is not registered to the user"}`, string(body))

	status, body = env.do(http.MethodPost, env.approversPath("/approve"), 1, env.approveBody(1, true))
	require.Equal(t, http.StatusOK, status, string(body))
	var resp struct {
		Recorded  bool   `json:"recorded"`
		Approvers []uint `json:"approvers"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Recorded)
	assert.Len(t, resp.Approvers, 1)

	// Every leaf of the user is now approved
	select {
	case evt := <-statusUpdates:
		assert.Equal(t, event.TransactionStatusUpdateEventType, evt.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no status update event published")
	}

	status, body = env.do(http.MethodPost, env.approversPath("/approve"), 1, env.approveBody(1, true))
	assert.Equal(t, http.StatusConflict, status, string(body))
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	resp.Body.Close()

	status, _ := env.do(
		http.MethodPost,
		env.approversPath(""),
		creator,
		`{"approversArray":[{"userId":9}]}`,
	)
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg struct {
		ID   string          `json:"id"`
		Type event.EventType `json:"type"`
		Data struct {
			EntityIDs []uint `json:"entityIds"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, event.TransactionUpdateEventType, msg.Type)
	assert.Equal(t, []uint{env.txID}, msg.Data.EntityIDs)
	assert.NotEmpty(t, msg.ID)
	require.NoError(t, conn.Close())
}
