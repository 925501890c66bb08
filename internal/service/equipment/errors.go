package equipment

import (
	"fmt"
	"strings"

	"github.com/Additional-Code/medequip/pkg/errorbank"
)

// SerialNumberField names the field a duplicate serial number is attributed to.
const SerialNumberField = "SerialNumber"

// FieldError describes one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether the named field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// DuplicateSerialNumberError reports a serial number already held by another record,
// whether caught by the pre-check or by the storage constraint.
type DuplicateSerialNumberError struct {
	SerialNumber string
}

func (e *DuplicateSerialNumberError) Error() string {
	return fmt.Sprintf("equipment with serial number %q already exists", e.SerialNumber)
}

// Field returns the name of the offending field.
func (e *DuplicateSerialNumberError) Field() string { return SerialNumberField }

// NotFoundError reports a missing equipment record.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("equipment %d not found", e.ID)
}

func invalid(fields []FieldError) error {
	verr := &ValidationError{Fields: fields}
	return errorbank.Unprocessable("validation failed",
		errorbank.WithCause(verr),
		errorbank.WithDetail("fields", fields),
	)
}

func duplicateSerial(serial string) error {
	dup := &DuplicateSerialNumberError{SerialNumber: serial}
	return errorbank.Conflict("serial number already exists",
		errorbank.WithCause(dup),
		errorbank.WithDetail("field", SerialNumberField),
	)
}

func notFound(id int64) error {
	return errorbank.NotFound("equipment not found",
		errorbank.WithCause(&NotFoundError{ID: id}),
		errorbank.WithDetail("id", id),
	)
}
