// =============================================================================
// Vetspire Import - Record Transformer
// =============================================================================
//
// This module turns a legacy ClientPatientRecord into the ClientInput and
// PatientInput payloads sent to the Vetspire API.
//
// MAPPING TABLES:
//   Plain field copies are declared as tables of {From, Set} pairs and
//   applied by one generic function, Project. Fields that need logic
//   (addresses, phone numbers, sex codes, deceased status) are derived in
//   TransformRecord after the tables have run.
//
// DECEASED STATUS:
//   The legacy system has used more than one status code for deceased
//   patients over time, so the codes are passed in through TransformOptions
//   rather than fixed here.
//
// =============================================================================

package converter

import (
	"strings"

	"github.com/john-osullivan/vetspire-import/internal/layout"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

// DefaultImportedNote marks clients created by this tool.
const DefaultImportedNote = "Imported from legacy system"

// DefaultDeceasedCodes are the legacy patient status codes meaning deceased.
var DefaultDeceasedCodes = []string{"Deceased", "N/A - D"}

// Sex values understood by the API.
const (
	SexMale    = "Male"
	SexFemale  = "Female"
	SexUnknown = "Unknown"
)

// =============================================================================
// MAPPING TABLES
// =============================================================================

// FieldMapping copies one legacy record field onto a payload of type T.
type FieldMapping[T any] struct {
	// From is the record key to read.
	From string

	// Set stores the value on the payload. It is not called for empty values.
	Set func(dst *T, value string)
}

// Project applies every mapping in the table to dst.
func Project[T any](rec *types.ClientPatientRecord, table []FieldMapping[T], dst *T) {
	for _, m := range table {
		if v := strings.TrimSpace(rec.Get(m.From)); v != "" {
			m.Set(dst, v)
		}
	}
}

var clientFields = []FieldMapping[types.ClientInput]{
	{From: types.KeyClientFirstName, Set: func(c *types.ClientInput, v string) { c.GivenName = v }},
	{From: types.KeyClientLastName, Set: func(c *types.ClientInput, v string) { c.FamilyName = v }},
	{From: types.KeyClientEmail, Set: func(c *types.ClientInput, v string) { c.Email = v }},
	{From: types.KeyClientID, Set: func(c *types.ClientInput, v string) { c.HistoricalID = v }},
}

var patientFields = []FieldMapping[types.PatientInput]{
	{From: types.KeyPatientName, Set: func(p *types.PatientInput, v string) { p.Name = v }},
	{From: types.KeyPatientSpecies, Set: func(p *types.PatientInput, v string) { p.Species = v }},
	{From: types.KeyPatientBreed, Set: func(p *types.PatientInput, v string) { p.Breed = v }},
	{From: types.KeyPatientColor, Set: func(p *types.PatientInput, v string) { p.Color = v }},
	{From: types.KeyPatientID, Set: func(p *types.PatientInput, v string) { p.HistoricalID = v }},
	{From: types.KeyPatientDOB, Set: func(p *types.PatientInput, v string) { p.BirthDate = layout.NormalizeDate(v) }},
}

var addressFields = []FieldMapping[types.AddressInput]{
	{From: types.KeyClientStreetAddr, Set: func(a *types.AddressInput, v string) { a.Line1 = v }},
	{From: types.KeyClientCity, Set: func(a *types.AddressInput, v string) { a.City = v }},
	{From: types.KeyClientState, Set: func(a *types.AddressInput, v string) { a.State = v }},
	{From: types.KeyClientPostCode, Set: func(a *types.AddressInput, v string) { a.PostalCode = v }},
}

// =============================================================================
// TRANSFORMATION
// =============================================================================

// TransformOptions controls the record transformation.
type TransformOptions struct {
	// LocationID becomes the client's primary location. May be empty.
	LocationID string

	// DeceasedCodes lists the patient status codes meaning deceased.
	// Defaults to DefaultDeceasedCodes.
	DeceasedCodes []string

	// ImportedNote is written to the client notes. Defaults to
	// DefaultImportedNote.
	ImportedNote string
}

// TransformRecord builds the client and patient payloads for one record.
// A deceased patient also marks its client inactive.
func TransformRecord(rec types.ClientPatientRecord, opts TransformOptions) (types.ClientInput, types.PatientInput) {
	deceased := IsDeceased(rec.PatientStatus, opts.DeceasedCodes)

	client := types.ClientInput{
		IsActive:          !deceased,
		PrimaryLocationID: opts.LocationID,
		Addresses:         []types.AddressInput{},
		PhoneNumbers:      []types.PhoneNumberInput{},
		Notes:             opts.ImportedNote,
	}
	if client.Notes == "" {
		client.Notes = DefaultImportedNote
	}
	Project(&rec, clientFields, &client)

	var addr types.AddressInput
	Project(&rec, addressFields, &addr)
	if addr.Line1 != "" && addr.City != "" && addr.State != "" && addr.PostalCode != "" {
		client.Addresses = append(client.Addresses, addr)
	}
	if phone := strings.TrimSpace(rec.ClientPhone); phone != "" {
		client.PhoneNumbers = append(client.PhoneNumbers, types.PhoneNumberInput{Value: phone})
	}

	sex, neutered := ParseSexAndNeutered(rec.PatientSexSpay)
	patient := types.PatientInput{
		Sex:        sex,
		Neutered:   neutered,
		IsActive:   !deceased,
		IsDeceased: deceased,
	}
	Project(&rec, patientFields, &patient)

	return client, patient
}

// ParseSexAndNeutered decodes a two-letter legacy sex code. The first letter
// is M or F, the second I (intact) or S/N (spayed or neutered). Anything else
// yields (Unknown, false).
func ParseSexAndNeutered(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return SexUnknown, false
	}

	var sex string
	switch code[0] {
	case 'M':
		sex = SexMale
	case 'F':
		sex = SexFemale
	default:
		return SexUnknown, false
	}

	neutered := code[1] == 'S' || code[1] == 'N'
	return sex, neutered
}

// IsDeceased reports whether status is one of the deceased codes. A nil code
// list selects DefaultDeceasedCodes.
func IsDeceased(status string, codes []string) bool {
	status = strings.TrimSpace(status)
	if status == "" {
		return false
	}
	if codes == nil {
		codes = DefaultDeceasedCodes
	}
	for _, code := range codes {
		if strings.EqualFold(status, strings.TrimSpace(code)) {
			return true
		}
	}
	return false
}
