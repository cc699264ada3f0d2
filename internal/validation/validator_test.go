// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package validation

import (
	"strings"
	"testing"
)

type bookRequest struct {
	Title string `validate:"required,min=1,max=500"`
	Year  int    `validate:"min=1000,max=2100"`
	Email string `validate:"omitempty,email"`
	Unit  string `validate:"omitempty,timeunit"`
}

func TestValidateStructPasses(t *testing.T) {
	t.Parallel()

	req := bookRequest{Title: "Dune", Year: 1965}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructRequiredField(t *testing.T) {
	t.Parallel()

	req := bookRequest{Year: 1965}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	errs := err.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Field() != "Title" || errs[0].Tag() != "required" {
		t.Errorf("unexpected error: field=%s tag=%s", errs[0].Field(), errs[0].Tag())
	}
	if !strings.Contains(errs[0].Error(), "Title is required") {
		t.Errorf("unexpected message: %s", errs[0].Error())
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	t.Parallel()

	req := bookRequest{Year: 99, Email: "not-an-email"}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(err.Errors()), err)
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %s", apiErr.Code)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multiple errors")
	}
}

func TestValidateStructSingleErrorDetails(t *testing.T) {
	t.Parallel()

	req := bookRequest{Title: "Dune", Year: 50}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Details["field"] != "Year" {
		t.Errorf("expected field detail Year, got %v", apiErr.Details["field"])
	}
	if !strings.Contains(apiErr.Message, "at least 1000") {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
}

func TestTimeUnitValidator(t *testing.T) {
	t.Parallel()

	valid := bookRequest{Title: "Dune", Year: 1965, Unit: "days"}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("expected 'days' to validate, got: %v", err)
	}

	invalid := bookRequest{Title: "Dune", Year: 1965, Unit: "fortnights"}
	err := ValidateStruct(&invalid)
	if err == nil {
		t.Fatal("expected error for unknown time unit")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

type orderStatusRequest struct {
	Status string `validate:"required,orderstatus"`
}

func TestOrderStatusValidator(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"pending", "completed", "cancelled"} {
		if err := ValidateStruct(&orderStatusRequest{Status: status}); err != nil {
			t.Errorf("expected %q to validate, got: %v", status, err)
		}
	}
	if err := ValidateStruct(&orderStatusRequest{Status: "shipped"}); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance")
	}
}
