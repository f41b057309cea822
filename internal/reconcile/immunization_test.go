package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

type fakeImmunizations struct {
	created []types.ImmunizationInput
	err     error
}

func (f *fakeImmunizations) CreateImmunization(_ context.Context, in types.ImmunizationInput) (*types.Immunization, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &types.Immunization{ID: "im-new", Name: in.Name}, nil
}

func rabiesDraft(patientID string) types.ImmunizationInput {
	return types.ImmunizationInput{
		PatientID:    patientID,
		Name:         "Rabies 1 Year",
		Date:         "2023-01-02",
		DueDate:      "2024-01-02",
		LotNumber:    "AB1234",
		Manufacturer: "Zoetis",
		ExpiryDate:   "2024-12-31",
		Administered: true,
		Historical:   true,
		IsRabies:     true,
	}
}

func TestImmunizationEnginePreconditions(t *testing.T) {
	_, err := NewImmunizationEngine(&fakeImmunizations{}, ImmunizationOptions{ProviderID: "pr1"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingLocation)

	_, err = NewImmunizationEngine(&fakeImmunizations{}, ImmunizationOptions{LocationID: "l1"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingProvider)
}

func TestImmunizationReconcile(t *testing.T) {
	recorded := types.Immunization{
		ID:           "im-1",
		Name:         "Rabies 1 Year",
		Patient:      &types.Ref{ID: "p1", Name: "Buddy"},
		Location:     &types.Ref{ID: "l1"},
		Provider:     &types.Ref{ID: "pr1"},
		Date:         "2023-01-02",
		DueDate:      "2024-01-02",
		LotNumber:    "AB1234",
		Manufacturer: "Zoetis",
		ExpiryDate:   "2024-12-31",
		Administered: true,
		Historical:   true,
		IsRabies:     true,
	}
	existing := []types.Patient{{ID: "p1", Name: "Buddy", Immunizations: []types.Immunization{recorded}}}

	changedLot := rabiesDraft("p1")
	changedLot.LotNumber = "ZZ9999"

	remote := &fakeImmunizations{}
	engine, err := NewImmunizationEngine(remote, ImmunizationOptions{LocationID: "l1", ProviderID: "pr1"}, zerolog.Nop())
	require.NoError(t, err)

	result, err := engine.Reconcile(context.Background(), []types.ImmunizationInput{
		rabiesDraft("p1"), // already recorded
		changedLot,        // partial match: created, never updated
		rabiesDraft("p2"), // other patient
		rabiesDraft("p2"), // duplicate of the one just created
		rabiesDraft(""),   // no patient
	}, existing)
	require.NoError(t, err)

	assert.Equal(t, Counts{Created: 2, Skipped: 2, Failed: 1}, result.Totals)
	require.Len(t, remote.created, 2)
	for _, in := range remote.created {
		assert.Equal(t, "l1", in.LocationID)
		assert.Equal(t, "pr1", in.ProviderID)
	}
	assert.Equal(t, "ZZ9999", remote.created[0].LotNumber)
	assert.Equal(t, ActionValidate, result.Failed[0].Action)
}

func TestImmunizationLocationOverlayAffectsMatch(t *testing.T) {
	recorded := types.Immunization{
		ID: "im-1", Name: "Rabies 1 Year", Patient: &types.Ref{ID: "p1"},
		Location: &types.Ref{ID: "other-location"}, Provider: &types.Ref{ID: "pr1"},
		Date: "2023-01-02", DueDate: "2024-01-02", LotNumber: "AB1234", Manufacturer: "Zoetis",
		ExpiryDate: "2024-12-31", Administered: true, Historical: true, IsRabies: true,
	}
	remote := &fakeImmunizations{}
	engine, err := NewImmunizationEngine(remote, ImmunizationOptions{LocationID: "l1", ProviderID: "pr1"}, zerolog.Nop())
	require.NoError(t, err)

	result, err := engine.Reconcile(context.Background(), []types.ImmunizationInput{rabiesDraft("p1")},
		[]types.Patient{{ID: "p1", Immunizations: []types.Immunization{recorded}}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Totals.Created)
}

func TestImmunizationCreateFailure(t *testing.T) {
	remote := &fakeImmunizations{err: errors.New("rejected")}
	engine, err := NewImmunizationEngine(remote, ImmunizationOptions{LocationID: "l1", ProviderID: "pr1", SendAPIRequests: true}, zerolog.Nop())
	require.NoError(t, err)

	result, err := engine.Reconcile(context.Background(), []types.ImmunizationInput{rabiesDraft("p1")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "full-send", result.Mode)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "rejected", result.Failed[0].Error)
	assert.Equal(t, ActionCreate, result.Failed[0].Action)
}

func TestUpdateLocations(t *testing.T) {
	const marker = "Imported from legacy system"
	clients := []types.Client{
		{ID: "c1", GivenName: "A", FamilyName: "One", Notes: marker, PrimaryLocationID: "old"},
		{ID: "c2", GivenName: "B", FamilyName: "Two", PrivateNotes: "x " + marker, PrimaryLocationID: "old"},
		{ID: "c3", GivenName: "C", FamilyName: "Three", Notes: marker, PrimaryLocationID: "new"},
		{ID: "c4", GivenName: "D", FamilyName: "Four", Notes: "walk-in", PrimaryLocationID: "old"},
	}
	remote := &fakeRemote{}

	out, err := UpdateLocations(context.Background(), remote, clients, "new", marker, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, out.Updated)
	assert.Equal(t, 2, out.Skipped)
	assert.Equal(t, 0, out.Failed)
	require.Len(t, remote.updatePayloads, 2)
	assert.Equal(t, map[string]any{"primaryLocationId": "new"}, remote.updatePayloads[0])

	_, err = UpdateLocations(context.Background(), remote, clients, "", marker, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingLocation)
}
