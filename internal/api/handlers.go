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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database/models"
)

type approverResponse struct {
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	TransactionID *uint     `json:"transactionId,omitempty"`
	ListID        *uint     `json:"listId,omitempty"`
	UserID        *uint     `json:"userId,omitempty"`
	Threshold     *uint     `json:"threshold,omitempty"`
	UserKeyID     *uint     `json:"userKeyId,omitempty"`
	Approved      *bool     `json:"approved"`
	Signature     string    `json:"signature,omitempty"`
	ID            uint      `json:"id"`
}

func newApproverResponse(row models.TransactionApprover) approverResponse {
	ret := approverResponse{
		ID:            row.ID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		TransactionID: row.TransactionID,
		ListID:        row.ListID,
		UserID:        row.UserID,
		Threshold:     row.Threshold,
		UserKeyID:     row.UserKeyID,
		Approved:      row.Approved,
	}
	if row.IsSigned() {
		ret.Signature = hex.EncodeToString(row.Signature)
	}
	return ret
}

func newApproverResponses(rows []models.TransactionApprover) []approverResponse {
	ret := make([]approverResponse, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, newApproverResponse(row))
	}
	return ret
}

type createApproversRequest struct {
	Approvers []approval.ApproverSpec `json:"approversArray"`
}

type approveRequest struct {
	UserKeyID *uint  `json:"userKeyId"`
	Approved  *bool  `json:"approved"`
	Signature string `json:"signature"`
}

type approveResponse struct {
	Reason    string `json:"reason,omitempty"`
	Approvers []uint `json:"approvers,omitempty"`
	Recorded  bool   `json:"recorded"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleListApprovers(w http.ResponseWriter, r *http.Request) {
	transactionID, _ := pathUint(r, "transactionId")
	rows, err := a.service.VisibleApprovers(transactionID, userID(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	switch r.URL.Query().Get("view") {
	case "", "flat":
		writeJSON(w, http.StatusOK, newApproverResponses(rows))
	case "tree":
		writeJSON(w, http.StatusOK, approval.BuildTreeView(rows))
	default:
		a.badRequest(w, r, "view must be flat or tree")
	}
}

func (a *API) handleCreateApprovers(w http.ResponseWriter, r *http.Request) {
	transactionID, _ := pathUint(r, "transactionId")
	var req createApproversRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.badRequest(w, r, err.Error())
		return
	}
	created, effect, err := a.service.CreateApprovers(
		userID(r.Context()),
		transactionID,
		req.Approvers,
	)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.dispatch(effect)
	writeJSON(w, http.StatusCreated, newApproverResponses(created))
}

func (a *API) handleUpdateApprover(w http.ResponseWriter, r *http.Request) {
	transactionID, _ := pathUint(r, "transactionId")
	approverID, _ := pathUint(r, "id")
	var update approval.ApproverUpdate
	if err := decodeBody(w, r, &update); err != nil {
		a.badRequest(w, r, err.Error())
		return
	}
	updated, effect, err := a.service.UpdateApprover(
		userID(r.Context()),
		transactionID,
		approverID,
		update,
	)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.dispatch(effect)
	writeJSON(w, http.StatusOK, newApproverResponse(*updated))
}

func (a *API) handleRemoveApprover(w http.ResponseWriter, r *http.Request) {
	transactionID, _ := pathUint(r, "transactionId")
	approverID, _ := pathUint(r, "id")
	effect, err := a.service.RemoveApprover(
		userID(r.Context()),
		transactionID,
		approverID,
	)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.dispatch(effect)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleApprove(w http.ResponseWriter, r *http.Request) {
	transactionID, _ := pathUint(r, "transactionId")
	var req approveRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.badRequest(w, r, err.Error())
		return
	}
	if req.UserKeyID == nil || req.Approved == nil || req.Signature == "" {
		a.badRequest(w, r, "userKeyId, signature and approved are required")
		return
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil {
		a.badRequest(w, r, "signature must be hex encoded")
		return
	}
	ret, err := a.service.SubmitApproval(approval.ApprovalRequest{
		TransactionID: transactionID,
		UserID:        userID(r.Context()),
		UserKeyID:     *req.UserKeyID,
		Signature:     sig,
		Approved:      *req.Approved,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !ret.Recorded {
		writeJSON(w, http.StatusOK, approveResponse{Reason: ret.Reason.Error()})
		return
	}
	a.dispatch(ret.Effect)
	writeJSON(w, http.StatusOK, approveResponse{
		Recorded:  true,
		Approvers: ret.Updated,
	})
}
