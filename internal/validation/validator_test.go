// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/contracthub/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type contractInput struct {
	Title    string                  `json:"title" validate:"required,notblank,max=20"`
	Status   models.ContractStatus   `json:"status" validate:"required,contract_status"`
	Type     models.ContractType     `json:"type" validate:"required,contract_type"`
	Statuses []models.ContractStatus `json:"statuses" validate:"omitempty,dive,contract_status"`
	Email    string                  `json:"email" validate:"omitempty,email"`
}

func TestValidateStruct(t *testing.T) {
	valid := contractInput{Title: "Lease", Status: models.StatusDraft, Type: models.TypeLease}

	tests := []struct {
		name      string
		mutate    func(*contractInput)
		wantField string
		wantTag   string
	}{
		{"valid", func(*contractInput) {}, "", ""},
		{"missing title", func(c *contractInput) { c.Title = "" }, "title", "required"},
		{"blank title", func(c *contractInput) { c.Title = " \t " }, "title", "notblank"},
		{"title too long", func(c *contractInput) { c.Title = strings.Repeat("x", 21) }, "title", "max"},
		{"lowercase status", func(c *contractInput) { c.Status = "draft" }, "status", "contract_status"},
		{"unknown type", func(c *contractInput) { c.Type = "GIFT" }, "type", "contract_type"},
		{"bad status in list", func(c *contractInput) {
			c.Statuses = []models.ContractStatus{models.StatusFinalized, "ARCHIVED"}
		}, "statuses[1]", "contract_status"},
		{"bad email", func(c *contractInput) { c.Email = "nope" }, "email", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			verr := ValidateStruct(&in)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("error = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	verr := ValidateStruct(&contractInput{})
	if verr == nil {
		t.Fatal("expected errors for empty input")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %s", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %#v, want 3 entries", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "title: title is required") {
		t.Errorf("Message = %q", apiErr.Message)
	}

	single := NewRequestValidationError("email", "immutable", "email cannot be changed").ToAPIError()
	if single.Message != "email cannot be changed" || single.Details["field"] != "email" {
		t.Errorf("single = %+v", single)
	}

	if (&RequestValidationError{}).ToAPIError().Message != "Validation failed" {
		t.Error("empty error should have a generic message")
	}
}
