// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	StatusDraft     ContractStatus = "DRAFT"
	StatusInReview  ContractStatus = "IN_REVIEW"
	StatusFinalized ContractStatus = "FINALIZED"
	StatusCanceled  ContractStatus = "CANCELED"
)

// AllContractStatuses lists every status in declaration order.
var AllContractStatuses = []ContractStatus{StatusDraft, StatusInReview, StatusFinalized, StatusCanceled}

// Valid reports whether s is one of the declared statuses.
func (s ContractStatus) Valid() bool {
	return s.rank() >= 0
}

func (s ContractStatus) rank() int {
	for i, v := range AllContractStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// ContractType is the category of a contract.
type ContractType string

const (
	TypeEmployment  ContractType = "EMPLOYMENT"
	TypeService     ContractType = "SERVICE"
	TypeSales       ContractType = "SALES"
	TypeLease       ContractType = "LEASE"
	TypeNDA         ContractType = "NDA"
	TypePartnership ContractType = "PARTNERSHIP"
)

// AllContractTypes lists every contract type in declaration order.
var AllContractTypes = []ContractType{TypeEmployment, TypeService, TypeSales, TypeLease, TypeNDA, TypePartnership}

// Valid reports whether t is one of the declared types.
func (t ContractType) Valid() bool {
	for _, v := range AllContractTypes {
		if v == t {
			return true
		}
	}
	return false
}

// StatusSet is a set of contract statuses a user subscribes to.
// Order is irrelevant; Normalize collapses duplicates into declaration order.
//
// It is stored as a comma-separated VARCHAR column.
type StatusSet []ContractStatus

// NewStatusSet builds a normalized set, rejecting unknown values.
func NewStatusSet(values []ContractStatus) (StatusSet, error) {
	for _, v := range values {
		if !v.Valid() {
			return nil, fmt.Errorf("unknown contract status %q", v)
		}
	}
	return StatusSet(values).Normalize(), nil
}

// Normalize returns a deduplicated copy in declaration order. Unknown values are dropped.
func (s StatusSet) Normalize() StatusSet {
	seen := make([]bool, len(AllContractStatuses))
	for _, v := range s {
		if r := v.rank(); r >= 0 {
			seen[r] = true
		}
	}
	out := make(StatusSet, 0, len(s))
	for i, ok := range seen {
		if ok {
			out = append(out, AllContractStatuses[i])
		}
	}
	return out
}

// Contains reports whether status is in the set.
func (s StatusSet) Contains(status ContractStatus) bool {
	for _, v := range s {
		if v == status {
			return true
		}
	}
	return false
}

// String renders the normalized set as its stored comma-separated form.
func (s StatusSet) String() string {
	norm := s.Normalize()
	parts := make([]string, len(norm))
	for i, v := range norm {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}

// Value implements driver.Valuer.
func (s StatusSet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *StatusSet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = StatusSet{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StatusSet", src)
	}

	set := StatusSet{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			set = append(set, ContractStatus(part))
		}
	}
	*s = set.Normalize()
	return nil
}
