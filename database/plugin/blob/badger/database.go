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

package badger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

// badgerTxn wraps a badger transaction and implements types.Txn
type badgerTxn struct {
	store    *BlobStoreBadger
	tx       *badger.Txn
	finished bool
}

func newBadgerTxn(store *BlobStoreBadger, tx *badger.Txn) *badgerTxn {
	return &badgerTxn{store: store, tx: tx}
}

func (t *badgerTxn) Commit() error {
	if t.finished {
		return nil
	}
	if t.tx == nil {
		t.finished = true
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.finished = true
	return nil
}

func (t *badgerTxn) Rollback() error {
	if t.finished {
		return nil
	}
	if t.tx != nil {
		t.tx.Discard()
	}
	t.finished = true
	return nil
}

// validateTxn returns the underlying *badgerTxn if txn belongs to this store
// and is still open
func (d *BlobStoreBadger) validateTxn(txn types.Txn) (*badgerTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	bTxn, ok := txn.(*badgerTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if bTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if bTxn.finished {
		return nil, errors.New("transaction already finished")
	}
	if bTxn.tx == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return bTxn, nil
}

// BlobStoreBadger stores transaction bodies in badger. Data is kept in memory
// only when no data directory is configured
type BlobStoreBadger struct {
	PromRegistry   prometheus.Registerer
	db             *badger.DB
	Logger         *slog.Logger
	gcTicker       *time.Ticker
	gcStopCh       chan struct{}
	DataDir        string
	gcWg           sync.WaitGroup
	BlockCacheSize uint64
	IndexCacheSize uint64
	GcInterval     time.Duration
	GcDiscardRatio float64
	GcEnabled      bool
}

// New creates a new blob store
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	db := &BlobStoreBadger{
		GcEnabled:      true,
		BlockCacheSize: DefaultBlockCacheSize,
		IndexCacheSize: DefaultIndexCacheSize,
		GcInterval:     DefaultGcInterval,
		GcDiscardRatio: DefaultGcDiscardRatio,
	}
	for _, opt := range opts {
		opt(db)
	}
	// badger rejects ratios outside (0, 1)
	if db.GcDiscardRatio <= 0 || db.GcDiscardRatio >= 1 {
		db.GcDiscardRatio = DefaultGcDiscardRatio
	}
	if db.GcInterval <= 0 {
		db.GcEnabled = false
	}
	if db.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if db.DataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithLogger(newBadgerLogger(db.Logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		// Nothing to reclaim in memory
		db.GcEnabled = false
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(db.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(db.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(db.DataDir, "blob")).
			WithLogger(newBadgerLogger(db.Logger)).
			WithLoggingLevel(badger.WARNING).
			WithBlockCacheSize(int64(db.BlockCacheSize)). //nolint:gosec // bounded by config
			WithIndexCacheSize(int64(db.IndexCacheSize)). //nolint:gosec // bounded by config
			WithCompression(options.Snappy)
	}
	blobDb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	db.db = blobDb
	db.init()
	return db, nil
}

func (d *BlobStoreBadger) init() {
	if d.PromRegistry != nil {
		d.registerBlobMetrics()
	}
	if d.GcEnabled {
		d.gcTicker = time.NewTicker(d.GcInterval)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.blobGc(d.gcTicker, d.gcStopCh)
	}
}

func (d *BlobStoreBadger) blobGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
			rewrites, err := d.runGc()
			if err != nil {
				d.Logger.Warn(
					fmt.Sprintf("blob DB: GC failure: %s", err),
					"component", "database",
				)
			}
			if rewrites > 0 {
				d.Logger.Debug(
					"blob DB: value log GC",
					"component", "database",
					"rewrites", rewrites,
				)
			}
		case <-stop:
			return
		}
	}
}

// runGc rewrites value log files while badger reports reclaimable space
func (d *BlobStoreBadger) runGc() (int, error) {
	rewrites := 0
	for {
		err := d.db.RunValueLogGC(d.GcDiscardRatio)
		switch {
		case err == nil:
			rewrites++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			return rewrites, nil
		default:
			return rewrites, err
		}
	}
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreBadger) Start() error {
	// Database is already opened in New()
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreBadger) Stop() error {
	return d.Close()
}

// Close stops background GC and closes the badger handle
func (d *BlobStoreBadger) Close() error {
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		if d.gcStopCh != nil {
			close(d.gcStopCh)
			d.gcStopCh = nil
		}
		d.gcWg.Wait()
		d.gcTicker = nil
	}
	return d.db.Close()
}

// DB returns the database handle
func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

// NewTransaction creates a new badger transaction
func (d *BlobStoreBadger) NewTransaction(update bool) types.Txn {
	return newBadgerTxn(d, d.db.NewTransaction(update))
}

// Get retrieves a value within a transaction
func (d *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	item, err := bTxn.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (d *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return bTxn.tx.Set(key, val)
}

// Delete removes a key within a transaction
func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return bTxn.tx.Delete(key)
}
