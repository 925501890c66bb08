package equipment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Additional-Code/medequip/internal/entity"
)

// Input carries the caller-editable fields of an equipment record.
type Input struct {
	Name                string        `validate:"required,min=2,max=200"`
	SerialNumber        string        `validate:"required,max=100"`
	Manufacturer        string        `validate:"max=150"`
	Model               string        `validate:"max=100"`
	Category            string        `validate:"required,max=100"`
	Location            string        `validate:"max=200"`
	Status              entity.Status `validate:"required,equipment_status"`
	PurchaseDate        *time.Time
	LastMaintenanceDate *time.Time
	NextMaintenanceDate *time.Time
	Notes               string `validate:"max=1000"`

	// Rejected lists fields the caller could not decode, such as malformed
	// dates. They are reported alongside the rule violations.
	Rejected []FieldError `validate:"-"`
}

// UpdateInput is the full field set echoed back by an edit form.
// CreatedAt is accepted but never applied.
type UpdateInput struct {
	Input
	ID        int64
	CreatedAt *time.Time
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.Manufacturer = strings.TrimSpace(in.Manufacturer)
	in.Model = strings.TrimSpace(in.Model)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.Status = entity.Status(strings.TrimSpace(string(in.Status)))
	in.Notes = strings.TrimSpace(in.Notes)
	in.PurchaseDate = calendarDate(in.PurchaseDate)
	in.LastMaintenanceDate = calendarDate(in.LastMaintenanceDate)
	in.NextMaintenanceDate = calendarDate(in.NextMaintenanceDate)
	return in
}

// applyTo copies the editable fields onto rec.
func (in Input) applyTo(rec *entity.Equipment) {
	rec.Name = in.Name
	rec.SerialNumber = in.SerialNumber
	rec.Manufacturer = in.Manufacturer
	rec.Model = in.Model
	rec.Category = in.Category
	rec.Location = in.Location
	rec.Status = in.Status
	rec.PurchaseDate = in.PurchaseDate
	rec.LastMaintenanceDate = in.LastMaintenanceDate
	rec.NextMaintenanceDate = in.NextMaintenanceDate
	rec.Notes = in.Notes
}

// calendarDate drops the time of day, keeping the date as written.
func calendarDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("equipment_status", func(fl validator.FieldLevel) bool {
		return entity.Status(fl.Field().String()).Valid()
	}); err != nil {
		panic("register equipment_status validation: " + err.Error())
	}
	return v
}

func validateInput(v *validator.Validate, in Input) []FieldError {
	fields := append([]FieldError(nil), in.Rejected...)
	err := v.Struct(in)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(fields, FieldError{Message: err.Error()})
	}
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Field() == "Name" {
			return "Name must be between 2 and 200 characters"
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		if fe.Field() == "Name" {
			return "Name must be between 2 and 200 characters"
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "equipment_status":
		return fmt.Sprintf("Status must be one of %s", statusList())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func statusList() string {
	statuses := entity.Statuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
