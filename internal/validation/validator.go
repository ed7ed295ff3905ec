package validation

import (
	validator "github.com/go-playground/validator/v10"
)

// NewValidator creates the validator instance shared by the wire layer and
// the orchestrator's request precondition checks.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate, nil
}
