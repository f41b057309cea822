package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-osullivan/vetspire-import/internal/converter"
	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/vetspire"
)

// fakeRemote records every call and answers like a well-behaved API unless
// told otherwise.
type fakeRemote struct {
	calls []string
	seq   int

	createClientErr  error
	createClientResp func(in types.ClientInput) *types.Client
	updatePatientErr error

	updatePayloads []map[string]any
}

func (f *fakeRemote) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeRemote) CreateClient(_ context.Context, in types.ClientInput) (*types.Client, error) {
	f.calls = append(f.calls, "createClient")
	if f.createClientErr != nil {
		return nil, f.createClientErr
	}
	if f.createClientResp != nil {
		return f.createClientResp(in), nil
	}
	return &types.Client{ID: f.nextID("c"), GivenName: in.GivenName, FamilyName: in.FamilyName, Email: in.Email}, nil
}

func (f *fakeRemote) UpdateClient(_ context.Context, id string, in map[string]any) (*types.Client, error) {
	f.calls = append(f.calls, "updateClient")
	f.updatePayloads = append(f.updatePayloads, in)
	given, _ := in["givenName"].(string)
	family, _ := in["familyName"].(string)
	return &types.Client{ID: id, GivenName: given, FamilyName: family}, nil
}

func (f *fakeRemote) CreatePatient(_ context.Context, clientID string, in types.PatientInput) (*types.Patient, error) {
	f.calls = append(f.calls, "createPatient")
	return &types.Patient{ID: f.nextID("p"), Name: in.Name, Client: &types.Client{ID: clientID}}, nil
}

func (f *fakeRemote) UpdatePatient(_ context.Context, id string, in map[string]any) (*types.Patient, error) {
	f.calls = append(f.calls, "updatePatient")
	f.updatePayloads = append(f.updatePayloads, in)
	if f.updatePatientErr != nil {
		return nil, f.updatePatientErr
	}
	return &types.Patient{ID: id}, nil
}

func (f *fakeRemote) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func buddyRecord() types.ClientPatientRecord {
	return types.ClientPatientRecord{
		PatientID:        "123",
		PatientName:      "Buddy",
		PatientSexSpay:   "MI",
		PatientStatus:    "Home",
		ClientFirstName:  "John",
		ClientLastName:   "Doe",
		ClientEmail:      "john.doe@example.com",
		ClientPhone:      "555-1234",
		ClientStreetAddr: "123 Main St",
		ClientCity:       "Anytown",
		ClientState:      "CA",
		ClientPostCode:   "12345",
	}
}

// remoteCopy builds snapshot records equal to what TransformRecord produces.
func remoteCopy(rec types.ClientPatientRecord) (types.Client, types.Patient) {
	in, pin := converter.TransformRecord(rec, converter.TransformOptions{})
	client := types.Client{
		ID:           "c-existing",
		GivenName:    in.GivenName,
		FamilyName:   in.FamilyName,
		Email:        in.Email,
		HistoricalID: in.HistoricalID,
		IsActive:     in.IsActive,
		Notes:        in.Notes,
	}
	for i, a := range in.Addresses {
		client.Addresses = append(client.Addresses, types.Address{ID: fmt.Sprintf("a%d", i), Line1: a.Line1, City: a.City, State: a.State, PostalCode: a.PostalCode})
	}
	for i, p := range in.PhoneNumbers {
		client.PhoneNumbers = append(client.PhoneNumbers, types.PhoneNumber{ID: fmt.Sprintf("ph%d", i), Value: p.Value})
	}
	patient := types.Patient{
		ID:           "p-existing",
		Name:         pin.Name,
		Sex:          pin.Sex,
		Neutered:     pin.Neutered,
		HistoricalID: pin.HistoricalID,
		IsActive:     pin.IsActive,
		IsDeceased:   pin.IsDeceased,
		Client:       &types.Client{ID: client.ID},
	}
	return client, patient
}

func newTestEngine(remote Remote, opts Options) *Engine {
	return NewEngine(remote, opts, zerolog.Nop())
}

func TestReconcileCreatesIntoEmptySnapshot(t *testing.T) {
	remote := &fakeRemote{}
	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(), []types.ClientPatientRecord{buddyRecord()}, Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, Counts{Created: 2}, result.Totals)
	assert.Equal(t, []string{"createClient", "createPatient"}, remote.calls)
	require.Len(t, result.Created, 2)
	assert.Equal(t, EntityClient, result.Created[0].Entity)
	assert.Equal(t, "Doe, John", result.Created[0].Subject)
	assert.Equal(t, EntityPatient, result.Created[1].Entity)
}

func TestReconcileSkipsEqualRecords(t *testing.T) {
	client, patient := remoteCopy(buddyRecord())
	remote := &fakeRemote{}

	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{buddyRecord()},
		Snapshot{Clients: []types.Client{client}, Patients: []types.Patient{patient}})
	require.NoError(t, err)

	assert.Equal(t, Counts{Skipped: 2}, result.Totals)
	assert.Empty(t, remote.calls)
}

func TestReconcileUpdatesChangedRecords(t *testing.T) {
	client, patient := remoteCopy(buddyRecord())
	client.GivenName = "Johnny"
	patient.Neutered = true
	remote := &fakeRemote{}

	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{buddyRecord()},
		Snapshot{Clients: []types.Client{client}, Patients: []types.Patient{patient}})
	require.NoError(t, err)

	// The email still matches, so the client is updated rather than created.
	assert.Equal(t, Counts{Updated: 2}, result.Totals)
	assert.Equal(t, []string{"updateClient", "updatePatient"}, remote.calls)

	clientPayload := remote.updatePayloads[0]
	assert.Equal(t, "John", clientPayload["givenName"])
	assert.NotContains(t, clientPayload, "id")

	patientPayload := remote.updatePayloads[1]
	assert.Equal(t, false, patientPayload["neutered"])
	assert.NotContains(t, patientPayload, "id")
	assert.NotContains(t, patientPayload, "client")

	assert.Equal(t, client, result.Updated[0].Previous)
	assert.Equal(t, MatchEmail, result.Updated[0].MatchReason)
	assert.Equal(t, MatchHistoricalID, result.Updated[1].MatchReason)
	assert.Equal(t, Counts{Updated: 1}, result.ByEntity[EntityClient])
	assert.Equal(t, Counts{Updated: 1}, result.ByEntity[EntityPatient])
}

func TestReconcileClientCreateFailureSkipsPatient(t *testing.T) {
	remote := &fakeRemote{createClientErr: errors.New("boom")}
	second := buddyRecord()
	second.PatientID, second.PatientName, second.ClientEmail, second.ClientFirstName = "124", "Rex", "jane@example.com", "Jane"

	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{buddyRecord(), second}, Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, 0, remote.count("createPatient"))
	assert.Equal(t, Counts{Failed: 2}, result.Totals)
	for _, list := range [][]Entry{result.Created, result.Updated, result.Skipped, result.Failed} {
		for _, e := range list {
			assert.NotEqual(t, EntityPatient, e.Entity)
		}
	}
	assert.Equal(t, "boom", result.Failed[0].Error)
	assert.Equal(t, ActionCreate, result.Failed[0].Action)
	assert.False(t, result.Failed[0].Timestamp.IsZero())
}

func TestReconcileRejectsIncompleteCreateResponse(t *testing.T) {
	remote := &fakeRemote{createClientResp: func(in types.ClientInput) *types.Client {
		return &types.Client{ID: "c1", GivenName: in.GivenName}
	}}

	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(), []types.ClientPatientRecord{buddyRecord()}, Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, Counts{Failed: 1}, result.Totals)
	assert.Contains(t, result.Failed[0].Error, "familyName")
	assert.Equal(t, 0, remote.count("createPatient"))
}

func TestReconcilePatientUpdateFailure(t *testing.T) {
	client, patient := remoteCopy(buddyRecord())
	patient.Breed = "Beagle"
	remote := &fakeRemote{updatePatientErr: errors.New("nope")}

	rec := buddyRecord()
	rec.PatientBreed = "Labrador"
	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{rec},
		Snapshot{Clients: []types.Client{client}, Patients: []types.Patient{patient}})
	require.NoError(t, err)

	assert.Equal(t, Counts{Skipped: 1, Failed: 1}, result.Totals)
	assert.Equal(t, ActionUpdate, result.Failed[0].Action)
	assert.Equal(t, patient, result.Failed[0].Previous)
	assert.Equal(t, MatchHistoricalID, result.Failed[0].MatchReason)
	assert.Equal(t, Counts{Failed: 1}, result.ByEntity[EntityPatient])
}

func TestClientMatchPriority(t *testing.T) {
	rec := buddyRecord()
	rec.ClientID = "legacy-9"

	byEmail := types.Client{ID: "c-email", GivenName: "John", FamilyName: "Doe", Email: "JOHN.DOE@example.com"}
	byHistorical := types.Client{ID: "c-hist", GivenName: "Someone", FamilyName: "Else", HistoricalID: "legacy-9"}
	byName := types.Client{ID: "c-name", GivenName: "john", FamilyName: "DOE"}

	e := newTestEngine(&fakeRemote{}, Options{})
	in, _ := converter.TransformRecord(rec, converter.TransformOptions{})

	tests := []struct {
		name    string
		clients []types.Client
		id      string
		reason  string
	}{
		{"historical id wins", []types.Client{byName, byEmail, byHistorical}, "c-hist", MatchHistoricalID},
		{"email before name", []types.Client{byName, byEmail}, "c-email", MatchEmail},
		{"name last", []types.Client{byName}, "c-name", MatchName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.clients = tt.clients
			match, ok := e.matchClient(in)
			require.True(t, ok)
			assert.Equal(t, tt.id, match.Record.ID)
			assert.Equal(t, tt.reason, match.Reason)
			assert.Equal(t, tt.id, e.clients[match.Index].ID)
		})
	}

	e.clients = []types.Client{{ID: "other", GivenName: "Jane", FamilyName: "Doe"}}
	_, ok := e.matchClient(in)
	assert.False(t, ok)
}

func TestPatientMatchIsScopedToClient(t *testing.T) {
	client, patient := remoteCopy(buddyRecord())
	patient.Client = &types.Client{ID: "someone-else"}
	remote := &fakeRemote{}

	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{buddyRecord()},
		Snapshot{Clients: []types.Client{client}, Patients: []types.Patient{patient}})
	require.NoError(t, err)

	assert.Equal(t, Counts{Created: 1, Skipped: 1}, result.Totals)
	assert.Equal(t, []string{"createPatient"}, remote.calls)
	assert.Equal(t, MatchEmail, result.Skipped[0].MatchReason)
	assert.Empty(t, result.Created[0].MatchReason)
	assert.Equal(t, map[string]Counts{
		EntityClient:  {Skipped: 1},
		EntityPatient: {Created: 1},
	}, result.ByEntity)

	t.Run("patient matched by name within its client", func(t *testing.T) {
		client, patient := remoteCopy(buddyRecord())
		patient.HistoricalID = ""
		patient.Name = "BUDDY"
		remote := &fakeRemote{}

		e := newTestEngine(remote, Options{})
		e.patients = []types.Patient{patient}
		_, pin := converter.TransformRecord(buddyRecord(), converter.TransformOptions{})
		match, ok := e.matchPatient(client.ID, pin)
		require.True(t, ok)
		assert.Equal(t, MatchNameClient, match.Reason)
		assert.Equal(t, patient.ID, match.Record.ID)

		_, ok = e.matchPatient("someone-else", pin)
		assert.False(t, ok)
	})
}

func TestReconcileFoldsCreatedRecordsIntoSnapshot(t *testing.T) {
	sibling := buddyRecord()
	sibling.PatientID, sibling.PatientName = "124", "Rex"

	remote := &fakeRemote{createClientResp: func(in types.ClientInput) *types.Client {
		c, _ := remoteCopy(buddyRecord())
		c.ID = "c-new"
		return &c
	}}

	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{buddyRecord(), sibling, buddyRecord()}, Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, 1, remote.count("createClient"))
	assert.Equal(t, 2, remote.count("createPatient"))
	assert.Equal(t, 3, result.Totals.Created)
	assert.Equal(t, 2, result.Totals.Skipped)
	assert.Equal(t, 1, result.Totals.Updated) // the fake's patient lacks the input fields
}

func TestReconcileRecordsIncompleteInput(t *testing.T) {
	remote := &fakeRemote{}
	result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(),
		[]types.ClientPatientRecord{{PatientName: "Nameless"}}, Snapshot{})
	require.NoError(t, err)

	assert.Empty(t, remote.calls)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, EntityRecord, result.Failed[0].Entity)
	assert.Equal(t, ActionValidate, result.Failed[0].Action)
}

func TestReconcileProgress(t *testing.T) {
	var records []types.ClientPatientRecord
	for i := 0; i < 12; i++ {
		rec := buddyRecord()
		rec.PatientID = fmt.Sprint(i)
		rec.ClientEmail = fmt.Sprintf("owner%d@example.com", i)
		rec.ClientFirstName = fmt.Sprintf("Owner%d", i)
		records = append(records, rec)
	}

	var reports []Progress
	_, err := newTestEngine(&fakeRemote{}, Options{OnProgress: func(p Progress) { reports = append(reports, p) }}).
		Reconcile(context.Background(), records, Snapshot{})
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Equal(t, 10, reports[0].Processed)
	assert.Equal(t, Counts{Created: 20}, reports[0].Delta)
	assert.Equal(t, 12, reports[1].Processed)
	assert.Equal(t, Counts{Created: 4}, reports[1].Delta)
	assert.Equal(t, Counts{Created: 24}, reports[1].Counts)
}

func TestReconcileStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestEngine(&fakeRemote{}, Options{}).Reconcile(ctx, []types.ClientPatientRecord{buddyRecord()}, Snapshot{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Processed)
}

func TestDryRunNeverSends(t *testing.T) {
	dry := vetspire.NewDryRun(zerolog.Nop())
	dir := t.TempDir()

	result, err := newTestEngine(dry, Options{TrackResults: true, OutputDir: dir}).
		Reconcile(context.Background(), []types.ClientPatientRecord{buddyRecord()}, Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, "dry-run", result.Mode)
	assert.Equal(t, int64(2), dry.Calls())
	require.Len(t, result.Created, 2)
	client := result.Created[0].Record.(*types.Client)
	assert.True(t, strings.HasPrefix(client.ID, vetspire.DryRunPrefix))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Len(t, names, 2)
	assert.Contains(t, names[0]+names[1], "import-failures_")
	assert.Contains(t, names[0]+names[1], "import-results_")
	for _, n := range names {
		assert.True(t, strings.HasSuffix(n, "_dry-run.json"), n)
	}
	assert.FileExists(t, filepath.Join(dir, names[0]))

	for _, n := range names {
		if !strings.HasPrefix(n, "import-results_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, n))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"byEntity"`)
		assert.Contains(t, string(data), `"client"`)
	}
}

func TestDeceasedRecordDeactivatesClient(t *testing.T) {
	for _, status := range []string{"Deceased", "N/A - D"} {
		t.Run(status, func(t *testing.T) {
			rec := buddyRecord()
			rec.PatientStatus = status

			var gotClient types.ClientInput
			remote := &fakeRemote{createClientResp: func(in types.ClientInput) *types.Client {
				gotClient = in
				return &types.Client{ID: "c1", GivenName: in.GivenName, FamilyName: in.FamilyName}
			}}
			result, err := newTestEngine(remote, Options{}).Reconcile(context.Background(), []types.ClientPatientRecord{rec}, Snapshot{})
			require.NoError(t, err)

			assert.False(t, gotClient.IsActive)
			patientIn := result.Created[1].Input.(types.PatientInput)
			assert.True(t, patientIn.IsDeceased)
			assert.False(t, patientIn.IsActive)
		})
	}
}
