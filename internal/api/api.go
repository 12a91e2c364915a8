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

package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/event"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

const maxBodySize = 1024 * 1024

type Config struct {
	Service      *approval.Service
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	EventStream  bool
}

// API is the HTTP surface of the approval service
type API struct {
	service  *approval.Service
	eventBus *event.EventBus
	logger   *slog.Logger
	metrics  *apiMetrics
	router   *mux.Router
}

func New(cfg Config) (*API, error) {
	if cfg.Service == nil {
		return nil, errors.New("api: no approval service configured")
	}
	if cfg.EventStream && cfg.EventBus == nil {
		return nil, errors.New("api: event stream requires an event bus")
	}
	a := &API{
		service:  cfg.Service,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger,
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("component", "api")
	a.initMetrics(cfg.PromRegistry)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(a.metricsMiddleware)
	router.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	if cfg.EventStream {
		router.HandleFunc("/events", a.handleEvents).Methods(http.MethodGet)
	}

	txRouter := router.PathPrefix("/transactions/{transactionId:[0-9]+}").Subrouter()
	txRouter.Use(userMiddleware)
	txRouter.HandleFunc("/approvers", a.handleListApprovers).
		Methods(http.MethodGet)
	txRouter.HandleFunc("/approvers", a.handleCreateApprovers).
		Methods(http.MethodPost)
	// Registered ahead of {id} so it is not taken for an approver id
	txRouter.HandleFunc("/approvers/approve", a.handleApprove).
		Methods(http.MethodPost)
	txRouter.HandleFunc("/approvers/{id:[0-9]+}", a.handleUpdateApprover).
		Methods(http.MethodPatch)
	txRouter.HandleFunc("/approvers/{id:[0-9]+}", a.handleRemoveApprover).
		Methods(http.MethodDelete)
	a.router = router
	return a, nil
}

// Handler returns the root HTTP handler
func (a *API) Handler() http.Handler {
	return a.router
}

// dispatch publishes the notification an effect calls for
func (a *API) dispatch(effect approval.Effect) {
	if a.eventBus == nil {
		return
	}
	var eventType event.EventType
	switch effect.Kind {
	case approval.EffectUpdate:
		eventType = event.TransactionUpdateEventType
	case approval.EffectStatusUpdate:
		eventType = event.TransactionStatusUpdateEventType
	default:
		return
	}
	evt := event.NewEvent(
		eventType,
		event.TransactionEvent{EntityIDs: effect.EntityIDs},
	)
	if !a.eventBus.PublishAsync(eventType, evt) {
		a.logger.Warn(
			"dropped approval event",
			"type", eventType,
			"entity_ids", effect.EntityIDs,
		)
	}
}
