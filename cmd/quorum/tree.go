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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type treeOutput struct {
	Problems      []string             `yaml:"problems,omitempty"`
	Approvers     []*approval.TreeNode `yaml:"approvers"`
	State         approval.State       `yaml:"state"`
	TransactionID uint                 `yaml:"transactionId"`
}

func treeRun(out io.Writer, cfg *config.Config, transactionID uint) error {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if globalFlags.debug {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if db == nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err != nil {
		logger.Warn("database opened with errors", "error", err)
	}
	svc, err := approval.NewDatabaseService(db, logger, nil)
	if err != nil {
		return err
	}
	forest, err := svc.Forest(transactionID)
	if err != nil {
		return fmt.Errorf("loading approvers: %w", err)
	}
	ret := treeOutput{
		TransactionID: transactionID,
		State:         forest.State(),
		Approvers:     approval.BuildTreeView(forest.Rows()),
	}
	for _, problem := range forest.Check() {
		ret.Problems = append(ret.Problems, problem.Error())
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(ret); err != nil {
		return err
	}
	return enc.Close()
}

func treeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <transaction-id>",
		Short: "Print the approver tree of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("no config found in context")
			}
			transactionID, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil || transactionID == 0 {
				return fmt.Errorf("invalid transaction id: %s", args[0])
			}
			return treeRun(cmd.OutOrStdout(), cfg, uint(transactionID))
		},
	}
	return cmd
}
