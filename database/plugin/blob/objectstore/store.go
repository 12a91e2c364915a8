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

// Package objectstore adapts remote object storage to the blob store
// interface. Writes are buffered in the transaction and uploaded on commit.
// Uploads are not atomic across objects: the commit timestamp object is
// written last, so an interrupted commit is caught by the startup check.
package objectstore

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultTimeout = 60 * time.Second

// ErrObjectNotFound is returned by a Backend for a missing object
var ErrObjectNotFound = errors.New("object not found")

var errReadOnlyTxn = errors.New("transaction is read-only")

// Backend reads and writes whole objects by name
type Backend interface {
	GetObject(ctx context.Context, name string) ([]byte, error)
	PutObject(ctx context.Context, name string, data []byte) error
	DeleteObject(ctx context.Context, name string) error
}

type Config struct {
	Backend      Backend
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// Prefix is prepended to every object name
	Prefix string
	// Timeout bounds each backend call
	Timeout time.Duration
}

type Store struct {
	backend Backend
	logger  *slog.Logger
	metrics *storeMetrics
	prefix  string
	timeout time.Duration
}

func New(cfg Config) (*Store, error) {
	if cfg.Backend == nil {
		return nil, errors.New("object store: no backend configured")
	}
	s := &Store{
		backend: cfg.Backend,
		logger:  cfg.Logger,
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	s.metrics = newStoreMetrics(cfg.PromRegistry, s.logger)
	return s, nil
}

// ObjectName returns the name of the object holding key
func (s *Store) ObjectName(key []byte) string {
	return s.prefix + hex.EncodeToString(key)
}

func (s *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) get(key []byte) ([]byte, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	name := s.ObjectName(key)
	data, err := s.backend.GetObject(ctx, name)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		s.metrics.op("get", false, 0)
		s.logger.Error(
			"object read failed",
			"component", "database",
			"object", name,
			"error", err,
		)
		return nil, err
	}
	s.metrics.op("get", true, len(data))
	return data, nil
}

func (s *Store) apply(name string, w pendingWrite) error {
	ctx, cancel := s.opContext()
	defer cancel()
	if w.deleted {
		err := s.backend.DeleteObject(ctx, name)
		if errors.Is(err, ErrObjectNotFound) {
			err = nil
		}
		s.metrics.op("delete", err == nil, 0)
		return err
	}
	err := s.backend.PutObject(ctx, name, w.data)
	s.metrics.op("put", err == nil, len(w.data))
	return err
}

// NewTransaction returns a transaction buffering writes until Commit
func (s *Store) NewTransaction(readWrite bool) types.Txn {
	return &objectTxn{
		store:     s,
		readWrite: readWrite,
		writes:    make(map[string]pendingWrite),
	}
}

func (s *Store) validateTxn(txn types.Txn) (*objectTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	oTxn, ok := txn.(*objectTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if oTxn.store != s {
		return nil, errors.New("transaction from different store")
	}
	return oTxn, nil
}

func (s *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	oTxn, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	if w, ok, err := oTxn.pending(s.ObjectName(key)); err != nil {
		return nil, err
	} else if ok {
		if w.deleted {
			return nil, types.ErrBlobKeyNotFound
		}
		return slices.Clone(w.data), nil
	}
	return s.get(key)
}

func (s *Store) Set(txn types.Txn, key, val []byte) error {
	oTxn, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	return oTxn.stage(s.ObjectName(key), pendingWrite{data: slices.Clone(val)})
}

func (s *Store) Delete(txn types.Txn, key []byte) error {
	oTxn, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	return oTxn.stage(s.ObjectName(key), pendingWrite{deleted: true})
}

// GetCommitTimestamp reads the last committed timestamp, zero if none
func (s *Store) GetCommitTimestamp() (int64, error) {
	data, err := s.get([]byte(types.CommitTimestampBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return new(big.Int).SetBytes(data).Int64(), nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return s.Set(
		txn,
		[]byte(types.CommitTimestampBlobKey),
		new(big.Int).SetInt64(timestamp).Bytes(),
	)
}

type pendingWrite struct {
	data    []byte
	deleted bool
}

type objectTxn struct {
	store     *Store
	writes    map[string]pendingWrite
	mu        sync.Mutex
	finished  bool
	readWrite bool
}

func (t *objectTxn) pending(name string) (pendingWrite, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return pendingWrite{}, false, errors.New("transaction already finished")
	}
	w, ok := t.writes[name]
	return w, ok, nil
}

func (t *objectTxn) stage(name string, w pendingWrite) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return errors.New("transaction already finished")
	}
	if !t.readWrite {
		return errReadOnlyTxn
	}
	t.writes[name] = w
	return nil
}

func (t *objectTxn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	timestampName := t.store.ObjectName([]byte(types.CommitTimestampBlobKey))
	names := make([]string, 0, len(t.writes))
	for name := range t.writes {
		if name != timestampName {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := t.writes[timestampName]; ok {
		names = append(names, timestampName)
	}
	for _, name := range names {
		if err := t.store.apply(name, t.writes[name]); err != nil {
			t.store.logger.Error(
				"object write failed during commit",
				"component", "database",
				"object", name,
				"error", err,
			)
			return err
		}
	}
	t.writes = nil
	return nil
}

func (t *objectTxn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	t.writes = nil
	return nil
}
