// =============================================================================
// Vetspire Import - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - recordparser / vaccine (parsed rows)
//   - converter / immunization (API inputs)
//   - vetspire / reconcile (remote records)
//   - csvparser / xlsxparser (persisted rows)
//
// =============================================================================

package types

// =============================================================================
// LEGACY CLIENT/PATIENT RECORD
// =============================================================================

// Field keys of the legacy client/patient export, in report order. The same
// strings label the values in the PDF, name the CSV columns and the JSON keys.
const (
	KeyPatientID        = "patientId"
	KeyPatientName      = "patientName"
	KeyPatientSpecies   = "patientSpecies"
	KeyPatientBreed     = "patientBreed"
	KeyPatientSexSpay   = "patientSexSpay"
	KeyClientID         = "clientId"
	KeyClientFirstName  = "clientFirstName"
	KeyClientLastName   = "clientLastName"
	KeyClientPhone      = "clientPhone"
	KeyClientEmail      = "clientEmail"
	KeyClientStreetAddr = "clientStreetAddr"
	KeyPatientWeight    = "patientWeight"
	KeyPatientColor     = "patientColor"
	KeyPatientDOB       = "patientDOB"
	KeyClientPostCode   = "clientPostCode"
	KeyClientCity       = "clientCity"
	KeyClientState      = "clientState"
	KeyPatientStatus    = "patientStatus"
)

// RecordKeys is the full catalog of recognized record keys in report order.
var RecordKeys = []string{
	KeyPatientID,
	KeyPatientName,
	KeyPatientSpecies,
	KeyPatientBreed,
	KeyPatientSexSpay,
	KeyClientID,
	KeyClientFirstName,
	KeyClientLastName,
	KeyClientPhone,
	KeyClientEmail,
	KeyClientStreetAddr,
	KeyPatientWeight,
	KeyPatientColor,
	KeyPatientDOB,
	KeyClientPostCode,
	KeyClientCity,
	KeyClientState,
	KeyPatientStatus,
}

// ClientPatientRecord is one patient together with its owning client, as it
// appears in the legacy export. An empty string means the value was missing.
type ClientPatientRecord struct {
	PatientID        string `csv:"patientId" json:"patientId"`
	PatientName      string `csv:"patientName" json:"patientName"`
	PatientSpecies   string `csv:"patientSpecies" json:"patientSpecies"`
	PatientBreed     string `csv:"patientBreed" json:"patientBreed"`
	PatientSexSpay   string `csv:"patientSexSpay" json:"patientSexSpay"`
	ClientID         string `csv:"clientId" json:"clientId"`
	ClientFirstName  string `csv:"clientFirstName" json:"clientFirstName"`
	ClientLastName   string `csv:"clientLastName" json:"clientLastName"`
	ClientPhone      string `csv:"clientPhone" json:"clientPhone"`
	ClientEmail      string `csv:"clientEmail" json:"clientEmail"`
	ClientStreetAddr string `csv:"clientStreetAddr" json:"clientStreetAddr"`
	PatientWeight    string `csv:"patientWeight" json:"patientWeight"`
	PatientColor     string `csv:"patientColor" json:"patientColor"`
	PatientDOB       string `csv:"patientDOB" json:"patientDOB"`
	ClientPostCode   string `csv:"clientPostCode" json:"clientPostCode"`
	ClientCity       string `csv:"clientCity" json:"clientCity"`
	ClientState      string `csv:"clientState" json:"clientState"`
	PatientStatus    string `csv:"patientStatus" json:"patientStatus"`
}

// field returns a pointer to the field labelled by key, or nil if the key is
// not part of the catalog.
func (r *ClientPatientRecord) field(key string) *string {
	switch key {
	case KeyPatientID:
		return &r.PatientID
	case KeyPatientName:
		return &r.PatientName
	case KeyPatientSpecies:
		return &r.PatientSpecies
	case KeyPatientBreed:
		return &r.PatientBreed
	case KeyPatientSexSpay:
		return &r.PatientSexSpay
	case KeyClientID:
		return &r.ClientID
	case KeyClientFirstName:
		return &r.ClientFirstName
	case KeyClientLastName:
		return &r.ClientLastName
	case KeyClientPhone:
		return &r.ClientPhone
	case KeyClientEmail:
		return &r.ClientEmail
	case KeyClientStreetAddr:
		return &r.ClientStreetAddr
	case KeyPatientWeight:
		return &r.PatientWeight
	case KeyPatientColor:
		return &r.PatientColor
	case KeyPatientDOB:
		return &r.PatientDOB
	case KeyClientPostCode:
		return &r.ClientPostCode
	case KeyClientCity:
		return &r.ClientCity
	case KeyClientState:
		return &r.ClientState
	case KeyPatientStatus:
		return &r.PatientStatus
	}
	return nil
}

// Set assigns value to the field labelled by key. It reports false for keys
// outside the catalog.
func (r *ClientPatientRecord) Set(key, value string) bool {
	p := r.field(key)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Get returns the value of the field labelled by key.
func (r *ClientPatientRecord) Get(key string) string {
	if p := r.field(key); p != nil {
		return *p
	}
	return ""
}

// Complete reports whether the record carries both identifying patient fields.
func (r *ClientPatientRecord) Complete() bool {
	return r.PatientID != "" && r.PatientName != ""
}

// IsRecordKey reports whether s is one of the catalog keys.
func IsRecordKey(s string) bool {
	var r ClientPatientRecord
	return r.field(s) != nil
}

// =============================================================================
// VACCINE REPORT ROWS
// =============================================================================

// LotMeta describes the manufacturing lot shared by a group of delivery rows.
// All fields are empty for the error batch printed before the first lot.
type LotMeta struct {
	LotNumber    string `json:"lotNumber"`
	Manufacturer string `json:"manufacturer"`
	ExpiryDate   string `json:"expiryDate"`
}

// VaccineDeliveryRow is one administered vaccine from the delivery report.
// Dates are YYYY-MM-DD.
type VaccineDeliveryRow struct {
	DateGiven        string `json:"dateGiven"`
	DateDue          string `json:"dateDue,omitempty"`
	PatientName      string `json:"patientName"`
	ClientGivenName  string `json:"clientGivenName"`
	ClientFamilyName string `json:"clientFamilyName"`
	Description      string `json:"description"`
	LotNumber        string `json:"lotNumber"`
	Manufacturer     string `json:"manufacturer"`
	ExpiryDate       string `json:"expiryDate"`
}

// WithLot returns a copy of the row carrying the given lot metadata.
func (v VaccineDeliveryRow) WithLot(lot LotMeta) VaccineDeliveryRow {
	v.LotNumber = lot.LotNumber
	v.Manufacturer = lot.Manufacturer
	v.ExpiryDate = lot.ExpiryDate
	return v
}

// =============================================================================
// API INPUT TYPES
// =============================================================================

// AddressInput is a postal address sent with a client.
type AddressInput struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// PhoneNumberInput is a phone number sent with a client.
type PhoneNumberInput struct {
	Value string `json:"value"`
}

// ClientInput is the payload for creating or updating a client.
type ClientInput struct {
	GivenName         string             `json:"givenName"`
	FamilyName        string             `json:"familyName"`
	Email             string             `json:"email,omitempty"`
	HistoricalID      string             `json:"historicalId,omitempty"`
	IsActive          bool               `json:"isActive"`
	PrimaryLocationID string             `json:"primaryLocationId,omitempty"`
	Addresses         []AddressInput     `json:"addresses"`
	PhoneNumbers      []PhoneNumberInput `json:"phoneNumbers"`
	Notes             string             `json:"notes,omitempty"`
}

// PatientInput is the payload for creating or updating a patient.
type PatientInput struct {
	Name         string `json:"name"`
	Species      string `json:"species,omitempty"`
	Breed        string `json:"breed,omitempty"`
	Color        string `json:"color,omitempty"`
	Sex          string `json:"sex"`
	Neutered     bool   `json:"neutered"`
	HistoricalID string `json:"historicalId,omitempty"`
	BirthDate    string `json:"birthDate,omitempty"`
	IsActive     bool   `json:"isActive"`
	IsDeceased   bool   `json:"isDeceased"`
}

// ImmunizationInput is the payload for creating an immunization. Drafts are
// written to proposal files without location and provider, which are filled
// in at import time.
type ImmunizationInput struct {
	PatientID    string `json:"patientId"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	DueDate      string `json:"dueDate,omitempty"`
	LotNumber    string `json:"lotNumber,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
	Administered bool   `json:"administered"`
	Declined     bool   `json:"declined"`
	Historical   bool   `json:"historical"`
	IsRabies     bool   `json:"isRabies"`
	LocationID   string `json:"locationId,omitempty"`
	ProviderID   string `json:"providerId,omitempty"`
}

// =============================================================================
// REMOTE RECORDS
// =============================================================================

// Ref is a nested {id, name} reference in API responses.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Address is an address as returned by the API.
type Address struct {
	ID         string `json:"id,omitempty"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// PhoneNumber is a phone number as returned by the API.
type PhoneNumber struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
}

// Client is a client record as returned by the API.
type Client struct {
	ID                string        `json:"id"`
	GivenName         string        `json:"givenName"`
	FamilyName        string        `json:"familyName"`
	Email             string        `json:"email,omitempty"`
	HistoricalID      string        `json:"historicalId,omitempty"`
	IsActive          bool          `json:"isActive"`
	PrimaryLocationID string        `json:"primaryLocationId,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	PrivateNotes      string        `json:"privateNotes,omitempty"`
	Addresses         []Address     `json:"addresses,omitempty"`
	PhoneNumbers      []PhoneNumber `json:"phoneNumbers,omitempty"`
}

// Patient is a patient record as returned by the API.
type Patient struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Species       string         `json:"species,omitempty"`
	Breed         string         `json:"breed,omitempty"`
	Color         string         `json:"color,omitempty"`
	Sex           string         `json:"sex,omitempty"`
	Neutered      bool           `json:"neutered"`
	HistoricalID  string         `json:"historicalId,omitempty"`
	BirthDate     string         `json:"birthDate,omitempty"`
	IsActive      bool           `json:"isActive"`
	IsDeceased    bool           `json:"isDeceased"`
	Client        *Client        `json:"client,omitempty"`
	Immunizations []Immunization `json:"immunizations,omitempty"`
}

// ClientID returns the id of the owning client, if the response carried one.
func (p Patient) ClientID() string {
	if p.Client == nil {
		return ""
	}
	return p.Client.ID
}

// Immunization is an immunization record as returned by the API.
type Immunization struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Patient      *Ref   `json:"patient,omitempty"`
	Location     *Ref   `json:"location,omitempty"`
	Provider     *Ref   `json:"provider,omitempty"`
	Date         string `json:"date"`
	DueDate      string `json:"dueDate,omitempty"`
	LotNumber    string `json:"lotNumber,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
	Administered bool   `json:"administered"`
	Declined     bool   `json:"declined"`
	Historical   bool   `json:"historical"`
	IsRabies     bool   `json:"isRabies"`
}

// AsInput projects an existing immunization onto the input shape so it can
// be compared with a draft.
func (im Immunization) AsInput() ImmunizationInput {
	in := ImmunizationInput{
		Name:         im.Name,
		Date:         im.Date,
		DueDate:      im.DueDate,
		LotNumber:    im.LotNumber,
		Manufacturer: im.Manufacturer,
		ExpiryDate:   im.ExpiryDate,
		Administered: im.Administered,
		Declined:     im.Declined,
		Historical:   im.Historical,
		IsRabies:     im.IsRabies,
	}
	if im.Patient != nil {
		in.PatientID = im.Patient.ID
	}
	if im.Location != nil {
		in.LocationID = im.Location.ID
	}
	if im.Provider != nil {
		in.ProviderID = im.Provider.ID
	}
	return in
}
