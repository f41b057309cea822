package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

func buddy() types.ClientPatientRecord {
	return types.ClientPatientRecord{
		PatientID:        "123",
		PatientName:      "Buddy",
		PatientSpecies:   "Canine",
		PatientBreed:     "Labrador",
		PatientSexSpay:   "MN",
		ClientID:         "456",
		ClientFirstName:  "John",
		ClientLastName:   "Doe",
		ClientPhone:      "555-1234",
		ClientEmail:      "john.doe@example.com",
		ClientStreetAddr: "123 Main St",
		PatientColor:     "Yellow",
		PatientDOB:       "2/20/2008",
		ClientPostCode:   "12345",
		ClientCity:       "Anytown",
		ClientState:      "NY",
		PatientStatus:    "Home",
	}
}

func TestTransformRecord(t *testing.T) {
	client, patient := TransformRecord(buddy(), TransformOptions{LocationID: "loc-1"})

	assert.Equal(t, types.ClientInput{
		GivenName:         "John",
		FamilyName:        "Doe",
		Email:             "john.doe@example.com",
		HistoricalID:      "456",
		IsActive:          true,
		PrimaryLocationID: "loc-1",
		Addresses: []types.AddressInput{
			{Line1: "123 Main St", City: "Anytown", State: "NY", PostalCode: "12345"},
		},
		PhoneNumbers: []types.PhoneNumberInput{{Value: "555-1234"}},
		Notes:        DefaultImportedNote,
	}, client)

	assert.Equal(t, types.PatientInput{
		Name:         "Buddy",
		Species:      "Canine",
		Breed:        "Labrador",
		Color:        "Yellow",
		Sex:          SexMale,
		Neutered:     true,
		HistoricalID: "123",
		BirthDate:    "2008-02-20",
		IsActive:     true,
	}, patient)
}

func TestTransformRecordPartialAddress(t *testing.T) {
	rec := buddy()
	rec.ClientCity = ""
	rec.ClientPhone = ""
	rec.PatientDOB = "sometime in 2008"

	client, patient := TransformRecord(rec, TransformOptions{ImportedNote: "legacy import"})
	assert.Empty(t, client.Addresses)
	assert.NotNil(t, client.Addresses)
	assert.Empty(t, client.PhoneNumbers)
	assert.Equal(t, "legacy import", client.Notes)
	assert.Empty(t, client.PrimaryLocationID)
	assert.Empty(t, patient.BirthDate)
}

func TestTransformRecordDeceased(t *testing.T) {
	for _, status := range []string{"Deceased", "N/A - D", " deceased "} {
		t.Run(status, func(t *testing.T) {
			rec := buddy()
			rec.PatientStatus = status
			client, patient := TransformRecord(rec, TransformOptions{})
			assert.False(t, client.IsActive)
			assert.False(t, patient.IsActive)
			assert.True(t, patient.IsDeceased)
		})
	}

	rec := buddy()
	rec.PatientStatus = "ND"
	_, patient := TransformRecord(rec, TransformOptions{})
	assert.False(t, patient.IsDeceased)

	_, patient = TransformRecord(rec, TransformOptions{DeceasedCodes: []string{"D", "ND"}})
	assert.True(t, patient.IsDeceased)
}

func TestParseSexAndNeutered(t *testing.T) {
	tests := []struct {
		code     string
		sex      string
		neutered bool
	}{
		{"MI", SexMale, false},
		{"MN", SexMale, true},
		{"MS", SexMale, true},
		{"FI", SexFemale, false},
		{"FS", SexFemale, true},
		{"fn", SexFemale, true},
		{"FX", SexFemale, false},
		{"XS", SexUnknown, false},
		{"M", SexUnknown, false},
		{"", SexUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			sex, neutered := ParseSexAndNeutered(tt.code)
			assert.Equal(t, tt.sex, sex)
			assert.Equal(t, tt.neutered, neutered)
		})
	}
}

func TestIsDeceased(t *testing.T) {
	assert.True(t, IsDeceased("Deceased", nil))
	assert.False(t, IsDeceased("", nil))
	assert.False(t, IsDeceased("Home", nil))
	assert.False(t, IsDeceased("Deceased", []string{}))
}
