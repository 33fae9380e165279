package validation

import (
	"fmt"
	"os"
	"strings"

	"github.com/kbukum/taskflow/errors"
)

// Validator collects validation errors for checks that struct tags cannot
// express, such as cross-field or filesystem conditions.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", v.errors)
}

// OneOf checks if a value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Unique reports every value that appears more than once.
func (v *Validator) Unique(field string, values []string) *Validator {
	seen := make(map[string]bool, len(values))
	reported := make(map[string]bool)
	for _, val := range values {
		if seen[val] && !reported[val] {
			v.AddError(field, fmt.Sprintf("duplicate value %q", val))
			reported[val] = true
		}
		seen[val] = true
	}
	return v
}

// Exists checks that a non-empty path exists on the filesystem.
func (v *Validator) Exists(field, path string) *Validator {
	if path == "" {
		return v
	}
	if _, err := os.Stat(path); err != nil {
		v.AddError(field, fmt.Sprintf("%s does not exist", path))
	}
	return v
}
