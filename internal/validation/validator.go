// =============================================================================
// Vetspire Import - Validation Engine
// =============================================================================
//
// This module validates records crossing the boundary between this tool and
// the outside world:
//   - Remote responses: a created or updated client, patient or immunization
//     must carry its identifying fields before it counts as a success.
//   - Parsed records: a legacy record must carry patientId and patientName
//     before it is handed to reconciliation.
//   - Field formats: optional warnings for values that look malformed (dates,
//     email addresses, sex codes) so an operator can fix them in the CSV.
//
// VALIDATION STRATEGY:
//   Each check is an explicit function returning either the record or a
//   *ValidationError. Callers never inspect the shape of a response
//   themselves.
//
// ERROR HANDLING:
//   - "error" severity: the record is rejected
//   - "warning" severity: reported, processing continues
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/john-osullivan/vetspire-import/internal/layout"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Entity names used in errors.
const (
	EntityClient       = "client"
	EntityPatient      = "patient"
	EntityImmunization = "immunization"
	EntityRecord       = "record"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation error.
type ValidationError struct {
	// Severity indicates the severity of the error.
	// "error" = the record is rejected
	// "warning" = non-fatal, processing can continue
	Severity string

	// Entity is the kind of record that failed validation.
	Entity string

	// Field is the name of the field that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] %s field '%s': %s",
			strings.ToUpper(e.Severity), e.Entity, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), e.Entity, e.Field, e.Message, e.Value)
}

func missing(entity, field string) *ValidationError {
	return &ValidationError{
		Severity: SeverityError,
		Entity:   entity,
		Field:    field,
		Message:  "required field is empty",
	}
}

// =============================================================================
// REMOTE RESPONSES
// =============================================================================

// ValidateClient checks a client returned by the API. The id, givenName and
// familyName must be present.
func ValidateClient(c *types.Client) (*types.Client, error) {
	if c == nil {
		return nil, &ValidationError{Severity: SeverityError, Entity: EntityClient, Field: "id", Message: "response carried no client"}
	}
	switch {
	case c.ID == "":
		return nil, missing(EntityClient, "id")
	case c.GivenName == "":
		return nil, missing(EntityClient, "givenName")
	case c.FamilyName == "":
		return nil, missing(EntityClient, "familyName")
	}
	return c, nil
}

// ValidateClientID checks a client returned by a partial update, whose
// selection may not include the names.
func ValidateClientID(c *types.Client) (*types.Client, error) {
	if c == nil {
		return nil, &ValidationError{Severity: SeverityError, Entity: EntityClient, Field: "id", Message: "response carried no client"}
	}
	if c.ID == "" {
		return nil, missing(EntityClient, "id")
	}
	return c, nil
}

// ValidatePatient checks a patient returned by the API. Only the id is
// required.
func ValidatePatient(p *types.Patient) (*types.Patient, error) {
	if p == nil {
		return nil, &ValidationError{Severity: SeverityError, Entity: EntityPatient, Field: "id", Message: "response carried no patient"}
	}
	if p.ID == "" {
		return nil, missing(EntityPatient, "id")
	}
	return p, nil
}

// ValidateImmunization checks an immunization returned by the API.
func ValidateImmunization(im *types.Immunization) (*types.Immunization, error) {
	if im == nil {
		return nil, &ValidationError{Severity: SeverityError, Entity: EntityImmunization, Field: "id", Message: "response carried no immunization"}
	}
	if im.ID == "" {
		return nil, missing(EntityImmunization, "id")
	}
	return im, nil
}

// =============================================================================
// PARSED RECORDS
// =============================================================================

// ValidateRecord checks that a parsed legacy record can be imported.
func ValidateRecord(rec types.ClientPatientRecord) (types.ClientPatientRecord, error) {
	if rec.PatientID == "" {
		return rec, missing(EntityRecord, types.KeyPatientID)
	}
	if rec.PatientName == "" {
		return rec, missing(EntityRecord, types.KeyPatientName)
	}
	return rec, nil
}

var (
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	sexCodePattern = regexp.MustCompile(`(?i)^[MF][ISN]$`)
)

// RecordWarnings reports field values that will not survive transformation
// intact. It never rejects a record.
func RecordWarnings(rec types.ClientPatientRecord) []*ValidationError {
	var warnings []*ValidationError
	warn := func(field, value, msg string) {
		warnings = append(warnings, &ValidationError{
			Severity: SeverityWarning,
			Entity:   EntityRecord,
			Field:    field,
			Value:    value,
			Message:  msg,
		})
	}

	if v := rec.PatientDOB; v != "" && layout.NormalizeDate(v) == "" {
		warn(types.KeyPatientDOB, v, "not a MM/DD/YYYY date; birth date will be omitted")
	}
	if v := rec.ClientEmail; v != "" && !emailPattern.MatchString(v) {
		warn(types.KeyClientEmail, v, "does not look like an email address")
	}
	if v := rec.PatientSexSpay; v != "" && !sexCodePattern.MatchString(v) {
		warn(types.KeyPatientSexSpay, v, "unknown sex code; sex will be Unknown")
	}
	return warnings
}
