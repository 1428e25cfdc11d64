// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built lazily with WithRequiredStructEnabled,
// reports fields by their JSON names, and registers two domain tags:
//
//   - contract_status: DRAFT, IN_REVIEW, FINALIZED or CANCELED
//   - contract_type: one of models.AllContractTypes
//
// Slices of statuses are validated with "dive,contract_status".
//
// Example usage:
//
//	type createContractRequest struct {
//	    Title  string `json:"title" validate:"required,max=255"`
//	    Status string `json:"status" validate:"required,contract_status"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    ...
//	}
package validation
