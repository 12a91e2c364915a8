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

package objectstore

import (
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamePrefix = "database_blob_object_"

type storeMetrics struct {
	ops   *prometheus.CounterVec
	bytes *prometheus.CounterVec
}

func newStoreMetrics(
	registry prometheus.Registerer,
	logger *slog.Logger,
) *storeMetrics {
	if registry == nil {
		return nil
	}
	m := &storeMetrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "ops_total",
				Help: "Total number of object store operations",
			},
			[]string{"op", "success"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "bytes_total",
				Help: "Total bytes read and written by object store operations",
			},
			[]string{"op"},
		),
	}
	for _, c := range []prometheus.Collector{m.ops, m.bytes} {
		if err := registry.Register(c); err != nil {
			logger.Warn(
				"failed to register blob metric",
				"component", "database",
				"error", err,
			)
		}
	}
	return m
}

func (m *storeMetrics) op(op string, success bool, size int) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, strconv.FormatBool(success)).Inc()
	if size > 0 {
		m.bytes.WithLabelValues(op).Add(float64(size))
	}
}
