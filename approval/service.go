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

package approval

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/signature"
	"github.com/prometheus/client_golang/prometheus"
)

// Config wires a Service to its collaborators. Transactions and Keys default
// to Store when it implements them.
type Config struct {
	Store        TreeStore
	Transactions Transactions
	Keys         KeyRegistry
	Verifier     signature.Verifier
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Service maintains the approval forests of transactions and records
// approvals against them
type Service struct {
	store        TreeStore
	transactions Transactions
	keys         KeyRegistry
	verifier     signature.Verifier
	logger       *slog.Logger
	metrics      *serviceMetrics
}

// NewService returns a Service for the given config
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("approval: no tree store configured")
	}
	s := &Service{
		store:        cfg.Store,
		transactions: cfg.Transactions,
		keys:         cfg.Keys,
		verifier:     cfg.Verifier,
		logger:       cfg.Logger,
	}
	if s.transactions == nil {
		if txs, ok := cfg.Store.(Transactions); ok {
			s.transactions = txs
		} else {
			return nil, errors.New("approval: no transaction provider configured")
		}
	}
	if s.keys == nil {
		if keys, ok := cfg.Store.(KeyRegistry); ok {
			s.keys = keys
		} else {
			return nil, errors.New("approval: no key registry configured")
		}
	}
	if s.verifier == nil {
		s.verifier = signature.DefaultVerifier{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "approval")
	s.initMetrics(cfg.PromRegistry)
	return s, nil
}

// NewDatabaseService returns a Service using db for storage and as its
// default collaborators
func NewDatabaseService(
	db *database.Database,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Service, error) {
	return NewService(Config{
		Store:        db,
		Logger:       logger,
		PromRegistry: promRegistry,
	})
}

// editableTransaction loads a transaction inside txn and checks the caller may
// change its approvers
func (s *Service) editableTransaction(
	transactionID uint,
	callerID uint,
	txn *database.Txn,
) (*models.Transaction, error) {
	tx, err := s.transactions.GetTransaction(transactionID, txn)
	if err != nil {
		return nil, storeError(err)
	}
	if tx.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	if tx.Status.IsTerminal() {
		return nil, ErrTransactionFinalized
	}
	return tx, nil
}

// loadForest reads the live forest of a transaction inside txn
func (s *Service) loadForest(
	transactionID uint,
	txn *database.Txn,
) (*Forest, error) {
	rows, err := s.store.GetApproversByTransaction(transactionID, nil, txn)
	if err != nil {
		return nil, err
	}
	return NewForest(transactionID, rows), nil
}

// Forest returns the live forest of a transaction without access checks
func (s *Service) Forest(transactionID uint) (*Forest, error) {
	return s.loadForest(transactionID, nil)
}
