// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"github.com/tomtom215/contracthub/internal/models"
)

// CreateContractRequest is the body of POST /api/contract.
type CreateContractRequest struct {
	Title       string                `json:"title" validate:"required,notblank,max=500"`
	ClientName  string                `json:"clientName" validate:"required,notblank,max=500"`
	Description *string               `json:"description" validate:"omitempty,max=10000"`
	Status      models.ContractStatus `json:"status" validate:"required,contract_status"`
	Type        models.ContractType   `json:"type" validate:"required,contract_type"`
}

// UpdateContractRequest is the body of PUT /api/contract.
type UpdateContractRequest struct {
	ID string `json:"id" validate:"required"`
	CreateContractRequest
}

func (r *CreateContractRequest) toContract(id string) *models.Contract {
	return &models.Contract{
		ID:          id,
		Title:       r.Title,
		ClientName:  r.ClientName,
		Description: r.Description,
		Status:      r.Status,
		Type:        r.Type,
	}
}

// CreateUserRequest is the body of POST /api/user.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// UpdateUserRequest is the body of PUT /api/user. An empty password keeps the
// stored hash.
type UpdateUserRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,max=72"`
}

// UpdateStatusesRequest is the body of POST /api/user/status.
type UpdateStatusesRequest struct {
	ID       string                  `json:"id" validate:"required"`
	Statuses []models.ContractStatus `json:"statuses" validate:"dive,contract_status"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MarkReadRequest is the body of PATCH /api/notifications/read.
type MarkReadRequest struct {
	NotificationIDs []string `json:"notificationIds" validate:"required,max=500,dive,required"`
}
