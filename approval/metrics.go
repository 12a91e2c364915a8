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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOk       = "ok"
	resultDeclined = "declined"
	resultRejected = "rejected"
	resultError    = "error"
)

type serviceMetrics struct {
	submissions *prometheus.CounterVec
	mutations   *prometheus.CounterVec
}

func (s *Service) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	s.metrics = &serviceMetrics{
		submissions: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_approval_submissions_total",
				Help: "approval submissions by result",
			},
			[]string{"result"},
		),
		mutations: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_approver_mutations_total",
				Help: "approver tree mutations by operation and result",
			},
			[]string{"op", "result"},
		),
	}
}

func (s *Service) recordMutation(op string, err error) {
	result := resultOk
	switch {
	case err == nil:
	case KindOf(err) == KindInternal:
		result = resultError
	default:
		result = resultRejected
	}
	s.metrics.mutations.WithLabelValues(op, result).Inc()
}
