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
	"encoding/json"
	"net/http"

	"github.com/blinklabs-io/quorum/approval"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func statusForKind(kind approval.ErrorKind) int {
	switch kind {
	case approval.KindStructural:
		return http.StatusBadRequest
	case approval.KindAuthorization:
		return http.StatusForbidden
	case approval.KindApproval:
		return http.StatusConflict
	case approval.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates a service error. Internal errors are logged and
// their detail withheld from the caller.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := approval.KindOf(err)
	status := statusForKind(kind)
	resp := errorResponse{
		Error:     err.Error(),
		Kind:      kind.String(),
		RequestID: requestID(r.Context()),
	}
	if kind == approval.KindInternal {
		a.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", resp.RequestID,
			"error", err,
		)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func (a *API) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     msg,
		RequestID: requestID(r.Context()),
	})
}
