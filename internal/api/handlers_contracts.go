// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"net/http"

	"github.com/tomtom215/contracthub/internal/audit"
	"github.com/tomtom215/contracthub/internal/export"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/notify"
)

// ContractGet returns one contract when ?id= is given, otherwise a filtered page.
//
// Method: GET
// Path: /api/contract
func (h *Handler) ContractGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if id := r.URL.Query().Get("id"); id != "" {
		contract, err := h.db.GetContract(r.Context(), id)
		if err != nil {
			writeStoreError(rw, err, "Contract not found")
			return
		}
		rw.Success(map[string]interface{}{"contract": contract})
		return
	}

	filter, err := contractFilterFromQuery(r)
	if err != nil {
		rw.ValidationError("Validation failed", err.Error(), nil)
		return
	}
	page, err := h.db.ListContracts(r.Context(), filter)
	if err != nil {
		rw.InternalError("Failed to list contracts", err)
		return
	}
	rw.Success(page)
}

// ContractCreate inserts a contract and notifies subscribers of its status.
//
// Method: POST
// Path: /api/contract
func (h *Handler) ContractCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateContractRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	contract := req.toContract("")
	if err := h.db.CreateContract(r.Context(), contract); err != nil {
		writeStoreError(rw, err, "Contract not found")
		return
	}
	h.audit.LogChange(r, actor(r), audit.EventTypeContractCreated, audit.Target{Type: "contract", ID: contract.ID},
		"Contract created", map[string]any{"status": contract.Status})

	if _, err := h.dispatcher.Dispatch(r.Context(), notify.Write{Contract: contract, IsCreate: true}); err != nil {
		writeStoreError(rw, err, "")
		return
	}

	logging.Ctx(r.Context()).Info().Str("contract_id", contract.ID).Str("status", string(contract.Status)).Msg("Contract created")
	rw.Created(map[string]interface{}{"contract": contract})
}

// ContractUpdate overwrites a contract. Subscribers are notified only when the
// status changed.
//
// Method: PUT
// Path: /api/contract
func (h *Handler) ContractUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateContractRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}
	if qid := r.URL.Query().Get("id"); qid != "" && qid != req.ID {
		rw.InvalidInput("id in query does not match id in body")
		return
	}

	contract := req.toContract(req.ID)
	previous, err := h.db.UpdateContract(r.Context(), contract)
	if err != nil {
		writeStoreError(rw, err, "Contract not found")
		return
	}
	h.audit.LogChange(r, actor(r), audit.EventTypeContractUpdated, audit.Target{Type: "contract", ID: contract.ID},
		"Contract updated", map[string]any{"from": previous, "to": contract.Status})

	if _, err := h.dispatcher.Dispatch(r.Context(), notify.Write{Contract: contract, Previous: previous}); err != nil {
		writeStoreError(rw, err, "")
		return
	}

	if previous != contract.Status {
		logging.Ctx(r.Context()).Info().
			Str("contract_id", contract.ID).
			Str("from", string(previous)).
			Str("to", string(contract.Status)).
			Msg("Contract status changed")
	}
	rw.Success(map[string]interface{}{"contract": contract})
}

// ContractDelete removes a contract. Notifications that reference it remain.
//
// Method: DELETE
// Path: /api/contract
func (h *Handler) ContractDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := r.URL.Query().Get("id")
	if id == "" {
		rw.InvalidInput("id is required")
		return
	}
	if err := h.db.DeleteContract(r.Context(), id); err != nil {
		writeStoreError(rw, err, "Contract not found")
		return
	}
	h.audit.LogChange(r, actor(r), audit.EventTypeContractDeleted, audit.Target{Type: "contract", ID: id},
		"Contract deleted", nil)
	rw.Success(map[string]interface{}{})
}

// ContractExport writes every contract matching the list filters as CSV.
//
// Method: GET
// Path: /api/contract/export
func (h *Handler) ContractExport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter, err := contractFilterFromQuery(r)
	if err != nil {
		rw.ValidationError("Validation failed", err.Error(), nil)
		return
	}
	contracts, err := h.db.ListAllContracts(r.Context(), filter)
	if err != nil {
		rw.InternalError("Failed to export contracts", err)
		return
	}
	h.audit.LogDataExport(r, actor(r), "contracts", len(contracts))
	writeCSV(w, "contracts", export.CSV(contracts, export.Options{Exclude: getListParam(r, "exclude")}))
}

// writeCSV writes body as a downloadable CSV file.
func writeCSV(w http.ResponseWriter, name, body string) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", export.Filename(name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		logging.Warn().Err(err).Str("export", name).Msg("Failed to write CSV export")
	}
}
