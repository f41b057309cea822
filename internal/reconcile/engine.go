// =============================================================================
// Vetspire Import - Reconciliation Engine
// =============================================================================
//
// This module decides, for every legacy client/patient record, whether the
// client and the patient must be created, updated or left alone, and carries
// the decision out through a Remote.
//
// PER RECORD:
//   1. Transform the record into ClientInput and PatientInput.
//   2. Client: match against the snapshot by historical id, then email
//      (case-insensitive), then given + family name (case-insensitive).
//        - no match       -> create
//        - match, equal   -> skip
//        - match, changed -> update with the merged payload
//      A failed client create ends the record; the patient is not attempted.
//   3. Patient: match only among the patients of the resolved client, by
//      historical id, then name (case-insensitive). Same create / skip /
//      update decision.
//
// RESPONSES:
//   Every create/update response is validated. A response without its
//   identifying fields is a failure, not a success.
//
// SNAPSHOT:
//   The engine works on a copy of the snapshot. Records created or updated
//   during the run are folded back in, so a second record for the same owner
//   matches the client the first record created.
//
// =============================================================================

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/john-osullivan/vetspire-import/internal/converter"
	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/validation"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

// Precondition failures that abort a run before any record is processed.
var (
	ErrMissingLocation = errors.New("location id is required")
	ErrMissingProvider = errors.New("provider id is required")
)

// DefaultProgressEvery is the progress reporting interval in records.
const DefaultProgressEvery = 10

// Remote is the mutation surface the engine drives. vetspire.Client and
// vetspire.DryRun both satisfy it.
type Remote interface {
	CreateClient(ctx context.Context, input types.ClientInput) (*types.Client, error)
	UpdateClient(ctx context.Context, id string, input map[string]any) (*types.Client, error)
	CreatePatient(ctx context.Context, clientID string, input types.PatientInput) (*types.Patient, error)
	UpdatePatient(ctx context.Context, id string, input map[string]any) (*types.Patient, error)
}

// Snapshot is the previously fetched state of the remote system.
type Snapshot struct {
	Clients  []types.Client
	Patients []types.Patient
}

// Match reasons, strongest first.
const (
	MatchHistoricalID = "historicalId"
	MatchEmail        = "email"
	MatchName         = "name"
	MatchNameClient   = "name+client"
)

// ClientMatch is a snapshot client matched to an input record.
type ClientMatch struct {
	Record types.Client
	Reason string

	// Index is the position of Record in the engine's snapshot.
	Index int
}

// PatientMatch is a snapshot patient matched to an input record.
type PatientMatch struct {
	Record types.Patient
	Reason string
	Index  int
}

// Options controls a reconciliation run.
type Options struct {
	// SendAPIRequests marks a full-send run. It only selects the mode label;
	// the Remote decides whether requests leave the machine.
	SendAPIRequests bool

	// Verbose logs every decision.
	Verbose bool

	// TrackResults writes the result and failure artifacts to OutputDir.
	TrackResults bool

	// OutputDir receives the artifacts.
	OutputDir string

	// ProgressEvery reports progress after this many records.
	// Default: DefaultProgressEvery.
	ProgressEvery int

	// OnProgress is called alongside the progress log line.
	OnProgress func(Progress)

	// Transform configures the record transformation.
	Transform converter.TransformOptions
}

// Engine reconciles client/patient records.
type Engine struct {
	remote Remote
	opts   Options
	logger zerolog.Logger

	clients  []types.Client
	patients []types.Patient
}

// NewEngine creates an Engine.
func NewEngine(remote Remote, opts Options, logger zerolog.Logger) *Engine {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Engine{
		remote: remote,
		opts:   opts,
		logger: logger.With().Str("component", "reconcile").Logger(),
	}
}

func (e *Engine) mode() string {
	return utils.ModeTag(e.opts.SendAPIRequests)
}

// Reconcile processes records in order against snapshot.
//
// RETURNS:
//   - The result, also when an error is returned.
//   - An error if ctx is cancelled (processing stops before the next
//     record) or the tracked artifacts cannot be written. Per-record failures
//     are never returned; they are recorded in Result.Failed.
func (e *Engine) Reconcile(ctx context.Context, records []types.ClientPatientRecord, snapshot Snapshot) (*Result, error) {
	e.clients = append([]types.Client(nil), snapshot.Clients...)
	e.patients = append([]types.Patient(nil), snapshot.Patients...)

	result := newResult(uuid.NewString(), e.mode(), len(records))
	progress := &progressTracker{every: e.opts.ProgressEvery}

	e.logger.Info().
		Str("run_id", result.RunID).
		Str("mode", result.Mode).
		Int("records", len(records)).
		Int("snapshot_clients", len(e.clients)).
		Int("snapshot_patients", len(e.patients)).
		Msg("reconciliation started")

	var runErr error
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		e.processRecord(ctx, i, rec, result)
		result.Processed++

		if progress.due(i+1, len(records)) {
			p := progress.next(i+1, len(records), result.Totals)
			e.logger.Info().
				Int("processed", p.Processed).
				Int("total", p.Total).
				Int("created", p.Counts.Created).
				Int("updated", p.Counts.Updated).
				Int("skipped", p.Counts.Skipped).
				Int("failed", p.Counts.Failed).
				Msgf("progress: +%d created, +%d updated, +%d skipped, +%d failed",
					p.Delta.Created, p.Delta.Updated, p.Delta.Skipped, p.Delta.Failed)
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(p)
			}
		}
	}

	result.FinishedAt = timeNow()

	if e.opts.TrackResults {
		resultsPath, failuresPath, err := result.Save(e.opts.OutputDir, "import")
		if err != nil {
			return result, errors.Join(runErr, fmt.Errorf("failed to save results: %w", err))
		}
		e.logger.Info().Str("results", resultsPath).Str("failures", failuresPath).Msg("results saved")
	}

	return result, runErr
}

// processRecord runs the client and patient state machines for one record.
func (e *Engine) processRecord(ctx context.Context, index int, rec types.ClientPatientRecord, result *Result) {
	if _, err := validation.ValidateRecord(rec); err != nil {
		result.failed(Entry{
			Entity:  EntityRecord,
			Index:   index,
			Subject: recordSubject(rec),
			Action:  ActionValidate,
			Input:   rec,
		}, err)
		return
	}

	clientIn, patientIn := converter.TransformRecord(rec, e.opts.Transform)

	clientID, ok := e.reconcileClient(ctx, index, clientIn, result)
	if !ok {
		if e.opts.Verbose {
			e.logger.Debug().Int("index", index).Str("patient", patientIn.Name).Msg("patient not attempted: client creation failed")
		}
		return
	}

	e.reconcilePatient(ctx, index, clientID, patientIn, result)
}

// =============================================================================
// CLIENT SIDE
// =============================================================================

// reconcileClient returns the id the patient should be attached to and false
// when the client could not be created.
func (e *Engine) reconcileClient(ctx context.Context, index int, in types.ClientInput, result *Result) (string, bool) {
	entry := Entry{Entity: EntityClient, Index: index, Subject: clientSubject(in), Input: in}

	match, found := e.matchClient(in)
	if !found {
		created, err := e.remote.CreateClient(ctx, in)
		if err == nil {
			created, err = validation.ValidateClient(created)
		}
		if err != nil {
			entry.Action = ActionCreate
			result.failed(entry, err)
			e.logger.Warn().Err(err).Int("index", index).Str("client", entry.Subject).Msg("client create failed")
			return "", false
		}
		entry.Record = created
		result.created(entry)
		e.clients = append(e.clients, *created)
		e.debug("client created", index, entry.Subject, created.ID)
		return created.ID, true
	}

	existing := match.Record
	entry.MatchReason = match.Reason
	equal, err := Subset(in, existing)
	if err != nil {
		entry.Action = ActionUpdate
		result.failed(entry, fmt.Errorf("compare client: %w", err))
		return existing.ID, true
	}
	if equal {
		entry.Record = existing
		result.skipped(entry)
		e.debug("client unchanged", index, entry.Subject, existing.ID)
		return existing.ID, true
	}

	payload, err := MergePayload(existing, in)
	if err == nil {
		var updated *types.Client
		updated, err = e.remote.UpdateClient(ctx, existing.ID, payload)
		if err == nil {
			updated, err = validation.ValidateClient(updated)
		}
		if err == nil {
			entry.Previous = existing
			entry.Record = updated
			result.updated(entry)
			e.clients[match.Index] = *updated
			e.debug("client updated", index, entry.Subject, updated.ID)
			return existing.ID, true
		}
	}

	entry.Action = ActionUpdate
	entry.Previous = existing
	result.failed(entry, err)
	e.logger.Warn().Err(err).Int("index", index).Str("client", entry.Subject).Msg("client update failed")
	return existing.ID, true
}

// matchClient finds the snapshot client matching in: by historical id, then
// by email (case-insensitive), then by given and family name.
func (e *Engine) matchClient(in types.ClientInput) (ClientMatch, bool) {
	if id := strings.TrimSpace(in.HistoricalID); id != "" {
		for i, c := range e.clients {
			if c.HistoricalID == id {
				return ClientMatch{Record: c, Index: i, Reason: MatchHistoricalID}, true
			}
		}
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		for i, c := range e.clients {
			if strings.EqualFold(strings.TrimSpace(c.Email), email) {
				return ClientMatch{Record: c, Index: i, Reason: MatchEmail}, true
			}
		}
	}
	if in.GivenName != "" && in.FamilyName != "" {
		for i, c := range e.clients {
			if strings.EqualFold(c.GivenName, in.GivenName) && strings.EqualFold(c.FamilyName, in.FamilyName) {
				return ClientMatch{Record: c, Index: i, Reason: MatchName}, true
			}
		}
	}
	return ClientMatch{}, false
}

// =============================================================================
// PATIENT SIDE
// =============================================================================

func (e *Engine) reconcilePatient(ctx context.Context, index int, clientID string, in types.PatientInput, result *Result) {
	entry := Entry{Entity: EntityPatient, Index: index, Subject: in.Name, Input: in}

	match, found := e.matchPatient(clientID, in)
	if !found {
		created, err := e.remote.CreatePatient(ctx, clientID, in)
		if err == nil {
			created, err = validation.ValidatePatient(created)
		}
		if err != nil {
			entry.Action = ActionCreate
			result.failed(entry, err)
			e.logger.Warn().Err(err).Int("index", index).Str("patient", in.Name).Msg("patient create failed")
			return
		}
		if created.Client == nil || created.Client.ID == "" {
			created.Client = &types.Client{ID: clientID}
		}
		entry.Record = created
		result.created(entry)
		e.patients = append(e.patients, *created)
		e.debug("patient created", index, in.Name, created.ID)
		return
	}

	existing := match.Record
	entry.MatchReason = match.Reason
	equal, err := Subset(in, existing)
	if err != nil {
		entry.Action = ActionUpdate
		result.failed(entry, fmt.Errorf("compare patient: %w", err))
		return
	}
	if equal {
		entry.Record = existing
		result.skipped(entry)
		e.debug("patient unchanged", index, in.Name, existing.ID)
		return
	}

	payload, err := MergePayload(existing, in)
	if err == nil {
		var updated *types.Patient
		updated, err = e.remote.UpdatePatient(ctx, existing.ID, payload)
		if err == nil {
			updated, err = validation.ValidatePatient(updated)
		}
		if err == nil {
			if updated.Client == nil || updated.Client.ID == "" {
				updated.Client = existing.Client
			}
			entry.Previous = existing
			entry.Record = updated
			result.updated(entry)
			e.patients[match.Index] = *updated
			e.debug("patient updated", index, in.Name, updated.ID)
			return
		}
	}

	entry.Action = ActionUpdate
	entry.Previous = existing
	result.failed(entry, err)
	e.logger.Warn().Err(err).Int("index", index).Str("patient", in.Name).Msg("patient update failed")
}

// matchPatient finds the snapshot patient of clientID matching in: by
// historical id, then by name (case-insensitive).
func (e *Engine) matchPatient(clientID string, in types.PatientInput) (PatientMatch, bool) {
	if clientID == "" {
		return PatientMatch{}, false
	}
	if id := strings.TrimSpace(in.HistoricalID); id != "" {
		for i, p := range e.patients {
			if p.ClientID() == clientID && p.HistoricalID == id {
				return PatientMatch{Record: p, Index: i, Reason: MatchHistoricalID}, true
			}
		}
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		for i, p := range e.patients {
			if p.ClientID() == clientID && strings.EqualFold(strings.TrimSpace(p.Name), name) {
				return PatientMatch{Record: p, Index: i, Reason: MatchNameClient}, true
			}
		}
	}
	return PatientMatch{}, false
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) debug(msg string, index int, subject, id string) {
	if !e.opts.Verbose {
		return
	}
	e.logger.Debug().Int("index", index).Str("subject", subject).Str("id", id).Msg(msg)
}

func clientSubject(in types.ClientInput) string {
	switch {
	case in.FamilyName != "" && in.GivenName != "":
		return in.FamilyName + ", " + in.GivenName
	case in.FamilyName != "":
		return in.FamilyName
	default:
		return in.GivenName
	}
}

func recordSubject(rec types.ClientPatientRecord) string {
	return fmt.Sprintf("%s (patientId %q)", rec.PatientName, rec.PatientID)
}
