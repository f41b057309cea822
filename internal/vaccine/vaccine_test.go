package vaccine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-osullivan/vetspire-import/internal/layout"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

const tableHeader = "Date Given Date Due Patient Name Client Name Description"

var sampleReport = strings.Join([]string{
	"Vaccine Delivery Report",
	"Lot # Manufacturer Expiration Date",
	tableHeader,
	"01/05/2023 01/05/2024 Rabies 1 Year DM Max Smith, Jane",
	"Total Number of Vaccinations: 1",
	"Lot # Manufacturer Expiration Date",
	"AB1234",
	"Zoetis",
	"12/31/2024",
	tableHeader,
	"02/20/2023 02/20/2024 DHPP Booster JB Buddy Doe, John",
	"03/01/202403/01/2023 Bordetella intranasal Whiskers-12-3 O'Brien, Mary",
	"03/01/2023",
	"Total Number of Vaccinations: 2",
	"Lot # Manufacturer Expiration Date",
	"98765 Merck Animal Health 06/30/2025",
	tableHeader,
	"04/04/2023 04/04/2026 Rabies 3yr Rex Van-Buren, Al",
	"Total Number of Vaccinations: 1",
	"CD5678 Elanco",
	"Lot # Manufacturer Expiration Date",
	tableHeader,
	"05/05/2023 05/05/2024 Lepto DM2 Daisy Lee, Ann",
}, "\n")

func TestParseText(t *testing.T) {
	rows := ParseText(sampleReport)
	require.Len(t, rows, 5)

	t.Run("error batch has empty lot", func(t *testing.T) {
		assert.Equal(t, types.VaccineDeliveryRow{
			DateGiven:        "2023-01-05",
			DateDue:          "2024-01-05",
			PatientName:      "Max",
			ClientGivenName:  "Jane",
			ClientFamilyName: "Smith",
			Description:      "Rabies 1 Year",
		}, rows[0])
	})

	t.Run("lot values after header", func(t *testing.T) {
		assert.Equal(t, "AB1234", rows[1].LotNumber)
		assert.Equal(t, "Zoetis", rows[1].Manufacturer)
		assert.Equal(t, "2024-12-31", rows[1].ExpiryDate)
		assert.Equal(t, "Buddy", rows[1].PatientName)
		assert.Equal(t, "DHPP Booster", rows[1].Description)
	})

	t.Run("glued dates and tag suffix", func(t *testing.T) {
		r := rows[2]
		assert.Equal(t, "2023-03-01", r.DateGiven)
		assert.Equal(t, "2024-03-01", r.DateDue)
		assert.Equal(t, "Whiskers", r.PatientName)
		assert.Equal(t, "O'Brien", r.ClientFamilyName)
		assert.Equal(t, "Mary", r.ClientGivenName)
		assert.Equal(t, "Bordetella intranasal", r.Description)
		assert.Equal(t, "AB1234", r.LotNumber)
	})

	t.Run("lot values on one line", func(t *testing.T) {
		r := rows[3]
		assert.Equal(t, types.LotMeta{LotNumber: "98765", Manufacturer: "Merck Animal Health", ExpiryDate: "2025-06-30"},
			types.LotMeta{LotNumber: r.LotNumber, Manufacturer: r.Manufacturer, ExpiryDate: r.ExpiryDate})
		assert.Equal(t, "Rex", r.PatientName)
		assert.Equal(t, "Van-Buren", r.ClientFamilyName)
	})

	t.Run("lot values before header", func(t *testing.T) {
		r := rows[4]
		assert.Equal(t, "CD5678", r.LotNumber)
		assert.Equal(t, "Elanco", r.Manufacturer)
		assert.Equal(t, "", r.ExpiryDate)
		assert.Equal(t, "Lepto", r.Description)
	})

	t.Run("every labelled lot has a lot number", func(t *testing.T) {
		for _, r := range rows[1:] {
			assert.NotEmpty(t, r.LotNumber)
		}
	})
}

func TestParseTextLotLineWins(t *testing.T) {
	rows := ParseText(strings.Join([]string{
		"Lot # Manufacturer Expiration Date",
		"Nobivac 3-Rabies",
		"AB1234 Merck 12/31/2025",
		tableHeader,
		"01/05/2023 01/05/2024 Rabies DM Max Smith, Jane",
	}, "\n"))
	require.Len(t, rows, 1)
	assert.Equal(t, "AB1234", rows[0].LotNumber)
	assert.Equal(t, "Merck", rows[0].Manufacturer)
	assert.Equal(t, "2025-12-31", rows[0].ExpiryDate)
}

func TestParseTextIgnoresRowsOutsideTables(t *testing.T) {
	rows := ParseText(strings.Join([]string{
		"01/05/2023 01/05/2024 Rabies DM Max Smith, Jane",
		"Lot # Manufacturer Expiration Date",
		"AB1234 Zoetis",
		"Total Number of Vaccinations: 0",
		"01/05/2023 01/05/2024 Rabies DM Max Smith, Jane",
	}, "\n"))
	assert.Empty(t, rows)
}

func TestParseRow(t *testing.T) {
	t.Run("dates are ordered", func(t *testing.T) {
		row, ok := ParseRow("06/01/2024 06/01/2023 Rabies DM Buddy Doe, John")
		require.True(t, ok)
		assert.Equal(t, "2023-06-01", row.DateGiven)
		assert.Equal(t, "2024-06-01", row.DateDue)
		assert.LessOrEqual(t, row.DateGiven, row.DateDue)
	})

	t.Run("description defaults when only provider codes remain", func(t *testing.T) {
		row, ok := ParseRow("06/01/2023 06/01/2024 DM JB2 Buddy Doe, John")
		require.True(t, ok)
		assert.Equal(t, UnknownDescription, row.Description)
	})

	t.Run("multi word patient name", func(t *testing.T) {
		row, ok := ParseRow("06/01/2023 06/01/2024 feline leukemia Mr Whiskers--45 Doe, John")
		require.True(t, ok)
		assert.Equal(t, "Mr Whiskers", row.PatientName)
		assert.Equal(t, "feline leukemia", row.Description)
	})

	t.Run("family name is the last word before the comma", func(t *testing.T) {
		row, ok := ParseRow("06/01/2023 06/01/2024 Rabies DM Buddy Van Buren, John")
		require.True(t, ok)
		assert.Equal(t, "Buddy Van", row.PatientName)
		assert.Equal(t, "Buren", row.ClientFamilyName)
		assert.Equal(t, "John", row.ClientGivenName)
		assert.Equal(t, "Rabies", row.Description)
	})

	rejects := []string{
		"06/01/2023 Rabies DM Buddy Doe, John",
		"06/01/2023 06/01/2024 Rabies DM Buddy Doe John",
		"06/01/2023 06/01/2024 Rabies DM Buddy Doe, John 2",
		"06/01/2023 06/01/2024 Rabies DM Buddy Doe,",
		"06/01/2023 06/01/2024 DM Doe, John",
		"06/01/2023 06/01/2024 Rabies Buddy DOE, John",
		"13/45/2023 06/01/2024 Rabies Buddy Doe, John",
		"Page 2 of 3",
	}
	for _, line := range rejects {
		t.Run("rejects "+line, func(t *testing.T) {
			_, ok := ParseRow(line)
			assert.False(t, ok)
		})
	}
}

func TestIsLotToken(t *testing.T) {
	assert.True(t, isLotToken("AB1234"))
	assert.True(t, isLotToken("98765"))
	assert.False(t, isLotToken("1234"))
	assert.False(t, isLotToken("Zoetis"))
	assert.False(t, isLotToken("12/31/2024"))
	assert.False(t, isLotToken("A1"))
	assert.False(t, isLotToken("AB-123"))
}

func item(x float64, text string) layout.Item {
	return layout.Item{X: x, Text: text}
}

func columnHeaderRow() layout.Row {
	return layout.Row{Items: []layout.Item{
		item(10, "Date"), item(16, "Given"), item(30, "Date Due"),
		item(50, "Patient Name"), item(75, "Client"), item(82, "Name"),
		item(110, "Description"),
	}}
}

func TestParseStructured(t *testing.T) {
	rows := []layout.Row{
		columnHeaderRow(),
		{Items: []layout.Item{item(10, "12/01/2022"), item(30, "12/01/2023"), item(50, "Early"), item(75, "Bird, Ann"), item(110, "Rabies")}},
		{Items: []layout.Item{item(10, "Total Number of Vaccinations: 1")}},
		{Items: []layout.Item{
			item(10, "Lot #:"), item(20, "AB1234"),
			item(40, "Manufacturer:"), item(55, "Zoetis"),
			item(80, "Expiration Date:"), item(95, "12/31/2024"),
		}},
		columnHeaderRow(),
		{Items: []layout.Item{item(10, "01/02/2023"), item(30, "01/02/2024"), item(50, "Buddy"), item(75, "Doe, John"), item(110, "Rabies 1 Year"), item(140, "DM")}},
		{Items: []layout.Item{item(50, "continued")}},
		{Items: []layout.Item{item(11, "02/03/2023"), item(52, "Rex"), item(76, "Mary Jane Smith")}},
		{Items: []layout.Item{item(10, "Total Number of Vaccinations: 2")}},
		{Items: []layout.Item{item(10, "03/03/2023"), item(50, "Stray"), item(75, "Nobody, Al")}},
		{Items: []layout.Item{item(10, "Lot #"), item(40, "Manufacturer"), item(80, "Expiration"), item(90, "Date")}},
		{Items: []layout.Item{item(12, "XY9876"), item(42, "Elanco"), item(81, "01/31/2026")}},
		columnHeaderRow(),
		{Items: []layout.Item{item(10, "04/04/2023"), item(30, "04/04/2024"), item(50, "Daisy"), item(75, "Lee, Ann"), item(110, "Lepto")}},
	}

	got := ParseStructured(rows)
	require.Len(t, got, 4)

	assert.Equal(t, types.VaccineDeliveryRow{
		DateGiven:        "2022-12-01",
		DateDue:          "2023-12-01",
		PatientName:      "Early",
		ClientGivenName:  "Ann",
		ClientFamilyName: "Bird",
		Description:      "Rabies",
	}, got[0])

	assert.Equal(t, types.VaccineDeliveryRow{
		DateGiven:        "2023-01-02",
		DateDue:          "2024-01-02",
		PatientName:      "Buddy",
		ClientGivenName:  "John",
		ClientFamilyName: "Doe",
		Description:      "Rabies 1 Year",
		LotNumber:        "AB1234",
		Manufacturer:     "Zoetis",
		ExpiryDate:       "2024-12-31",
	}, got[1])

	assert.Equal(t, "2023-02-03", got[2].DateGiven)
	assert.Equal(t, "", got[2].DateDue)
	assert.Equal(t, "Smith", got[2].ClientFamilyName)
	assert.Equal(t, "Mary Jane", got[2].ClientGivenName)
	assert.Equal(t, UnknownDescription, got[2].Description)

	assert.Equal(t, "XY9876", got[3].LotNumber)
	assert.Equal(t, "Elanco", got[3].Manufacturer)
	assert.Equal(t, "2026-01-31", got[3].ExpiryDate)
	assert.Equal(t, "Daisy", got[3].PatientName)

	t.Run("lot header printed as one run", func(t *testing.T) {
		singleRun := layout.Row{Items: []layout.Item{item(10, "Lot # Manufacturer Expiration Date")}}
		rows := []layout.Row{
			singleRun,
			{Items: []layout.Item{item(10, "AB1234"), item(40, "Zoetis"), item(80, "12/31/2025")}},
			columnHeaderRow(),
			{Items: []layout.Item{item(10, "01/02/2023"), item(30, "01/02/2024"), item(50, "Buddy"), item(75, "Doe, John"), item(110, "Rabies")}},
			{Items: []layout.Item{item(10, "Total Number of Vaccinations: 1")}},
			singleRun,
			{Items: []layout.Item{item(10, "CD5678"), item(40, "Merck"), item(80, "06/30/2026")}},
			columnHeaderRow(),
			{Items: []layout.Item{item(10, "02/03/2023"), item(30, "02/03/2024"), item(50, "Rex"), item(75, "Lee, Ann"), item(110, "DHPP")}},
		}

		got := ParseStructured(rows)
		require.Len(t, got, 2)

		assert.Equal(t, "Buddy", got[0].PatientName)
		assert.Equal(t, types.LotMeta{LotNumber: "AB1234", Manufacturer: "Zoetis", ExpiryDate: "2025-12-31"},
			types.LotMeta{LotNumber: got[0].LotNumber, Manufacturer: got[0].Manufacturer, ExpiryDate: got[0].ExpiryDate})

		assert.Equal(t, "Rex", got[1].PatientName)
		assert.Equal(t, types.LotMeta{LotNumber: "CD5678", Manufacturer: "Merck", ExpiryDate: "2026-06-30"},
			types.LotMeta{LotNumber: got[1].LotNumber, Manufacturer: got[1].Manufacturer, ExpiryDate: got[1].ExpiryDate})
	})
}

func TestParsePositioned(t *testing.T) {
	pages := []layout.Page{{Number: 1, Items: []layout.Item{
		{X: 110, Y: 20, Text: "Description"},
		{X: 10, Y: 20, Text: "Date Given"},
		{X: 30, Y: 20.1, Text: "Date Due"},
		{X: 50, Y: 20, Text: "Patient Name"},
		{X: 75, Y: 20.2, Text: "Client Name"},
		{X: 10, Y: 30, Text: "01/02/2023"},
		{X: 30, Y: 30, Text: "01/02/2024"},
		{X: 50, Y: 30.3, Text: "Buddy"},
		{X: 75, Y: 30, Text: "Doe, John"},
		{X: 110, Y: 29.8, Text: "Rabies 1 Year"},
	}}}

	rows := ParsePositioned(pages, layout.DefaultRowTolerance)
	require.Len(t, rows, 1)
	assert.Equal(t, "Buddy", rows[0].PatientName)
	assert.Equal(t, "Rabies 1 Year", rows[0].Description)
}
