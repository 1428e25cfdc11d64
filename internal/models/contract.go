// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package models

import "time"

// Contract is a client contract record.
type Contract struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	ClientName  string         `json:"clientName" db:"client_name"`
	Description *string        `json:"description" db:"description"`
	Status      ContractStatus `json:"status" db:"status"`
	Type        ContractType   `json:"type" db:"type"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// ContractFilter selects a page of contracts.
type ContractFilter struct {
	PageIndex int
	PageSize  int
	// Search matches title or client name, case-insensitively.
	Search   string
	Types    []ContractType
	Statuses []ContractStatus
}

// ContractPage is one page of contracts plus the page count for the filter.
type ContractPage struct {
	Contracts  []Contract `json:"contracts"`
	TotalPages int        `json:"totalPages"`
}

// TotalPages returns ceil(total/pageSize), or 0 for a non-positive page size.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
