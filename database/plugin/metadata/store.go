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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/plugin"
	"github.com/blinklabs-io/quorum/database/types"
	"gorm.io/gorm"

	// Register the SQL plugins
	_ "github.com/blinklabs-io/quorum/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/quorum/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/quorum/database/plugin/metadata/sqlite"
)

type MetadataStore interface {
	// Database
	plugin.Plugin
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Approval forest
	GetApprover(uint, types.Txn) (*models.TransactionApprover, error)
	GetApproversByTransaction(
		uint, // transactionID
		*uint, // userID
		types.Txn,
	) ([]models.TransactionApprover, error)
	GetApproverSubtree(uint, types.Txn) ([]models.TransactionApprover, error)
	GetApproverRoot(uint, types.Txn) (*models.TransactionApprover, error)
	DeleteApproverSubtree(uint, types.Txn) (int64, error)
	CountApprovers(models.ApproverCriteria, types.Txn) (int64, error)
	CreateApprover(*models.TransactionApprover, types.Txn) error
	UpdateApprover(*models.TransactionApprover, types.Txn) error
	SetApproverSignatures(
		[]uint, // approver IDs
		uint, // userKeyID
		[]byte, // signature
		bool, // approved
		types.Txn,
	) (int64, error)

	// Transactions and their participants
	GetTransaction(uint, types.Txn) (*models.Transaction, error)
	SetTransaction(*models.Transaction, types.Txn) error
	SetTransactionStatus(uint, models.TransactionStatus, types.Txn) error
	IsSigner(uint, uint, types.Txn) (bool, error)
	AddSigner(*models.TransactionSigner, types.Txn) error
	IsObserver(uint, uint, types.Txn) (bool, error)
	AddObserver(*models.TransactionObserver, types.Txn) error
	GetUserKeys(uint, types.Txn) ([]models.UserKey, error)
	AddUserKey(*models.UserKey, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
