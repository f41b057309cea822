package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/validation"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

// ImmunizationRemote creates immunizations.
type ImmunizationRemote interface {
	CreateImmunization(ctx context.Context, input types.ImmunizationInput) (*types.Immunization, error)
}

// ImmunizationOptions controls an immunization run.
type ImmunizationOptions struct {
	// LocationID and ProviderID are set on every draft. Both are required.
	LocationID string
	ProviderID string

	SendAPIRequests bool
	Verbose         bool
	TrackResults    bool
	OutputDir       string
	ProgressEvery   int
	OnProgress      func(Progress)
}

// comparisonIgnored lists the fields left out when a draft is compared with
// an existing immunization. The patient is implied by where the existing
// immunization was found.
var comparisonIgnored = []string{"patientId"}

// ImmunizationEngine creates the drafts that are not already recorded.
// There is no update path: an existing immunization either equals a draft
// exactly or the draft is created.
type ImmunizationEngine struct {
	remote ImmunizationRemote
	opts   ImmunizationOptions
	logger zerolog.Logger
}

// NewImmunizationEngine creates an ImmunizationEngine. It fails with
// ErrMissingLocation or ErrMissingProvider before any work is done.
func NewImmunizationEngine(remote ImmunizationRemote, opts ImmunizationOptions, logger zerolog.Logger) (*ImmunizationEngine, error) {
	if strings.TrimSpace(opts.LocationID) == "" {
		return nil, ErrMissingLocation
	}
	if strings.TrimSpace(opts.ProviderID) == "" {
		return nil, ErrMissingProvider
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &ImmunizationEngine{
		remote: remote,
		opts:   opts,
		logger: logger.With().Str("component", "reconcile").Str("entity", EntityImmunization).Logger(),
	}, nil
}

// Reconcile creates every draft that has no exact match among the existing
// immunizations of its patient. existing is a patient snapshot carrying
// immunizations.
func (e *ImmunizationEngine) Reconcile(ctx context.Context, drafts []types.ImmunizationInput, existing []types.Patient) (*Result, error) {
	byPatient := make(map[string][]types.ImmunizationInput, len(existing))
	for _, p := range existing {
		for _, im := range p.Immunizations {
			byPatient[p.ID] = append(byPatient[p.ID], im.AsInput())
		}
	}

	result := newResult(uuid.NewString(), utils.ModeTag(e.opts.SendAPIRequests), len(drafts))
	progress := &progressTracker{every: e.opts.ProgressEvery}

	e.logger.Info().
		Str("run_id", result.RunID).
		Str("mode", result.Mode).
		Int("drafts", len(drafts)).
		Int("patients", len(existing)).
		Msg("immunization reconciliation started")

	var runErr error
	for i, draft := range drafts {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		draft.LocationID = e.opts.LocationID
		draft.ProviderID = e.opts.ProviderID
		if created, ok := e.processDraft(ctx, i, draft, byPatient[draft.PatientID], result); ok {
			byPatient[draft.PatientID] = append(byPatient[draft.PatientID], created)
		}
		result.Processed++

		if progress.due(i+1, len(drafts)) {
			p := progress.next(i+1, len(drafts), result.Totals)
			e.logger.Info().
				Int("processed", p.Processed).
				Int("total", p.Total).
				Msgf("progress: +%d created, +%d skipped, +%d failed", p.Delta.Created, p.Delta.Skipped, p.Delta.Failed)
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(p)
			}
		}
	}

	result.FinishedAt = timeNow()

	if e.opts.TrackResults {
		resultsPath, failuresPath, err := result.Save(e.opts.OutputDir, "immunization-import")
		if err != nil {
			return result, errors.Join(runErr, fmt.Errorf("failed to save results: %w", err))
		}
		e.logger.Info().Str("results", resultsPath).Str("failures", failuresPath).Msg("results saved")
	}

	return result, runErr
}

// processDraft returns the created draft and true when a create succeeded.
func (e *ImmunizationEngine) processDraft(ctx context.Context, index int, draft types.ImmunizationInput, recorded []types.ImmunizationInput, result *Result) (types.ImmunizationInput, bool) {
	entry := Entry{
		Entity:  EntityImmunization,
		Index:   index,
		Subject: fmt.Sprintf("%s on %s for patient %s", draft.Name, draft.Date, draft.PatientID),
		Input:   draft,
	}

	if draft.PatientID == "" {
		entry.Action = ActionValidate
		result.failed(entry, &validation.ValidationError{
			Severity: validation.SeverityError,
			Entity:   validation.EntityImmunization,
			Field:    "patientId",
			Message:  "required field is empty",
		})
		return draft, false
	}

	for _, existing := range recorded {
		equal, err := Equal(draft, existing, comparisonIgnored...)
		if err != nil {
			entry.Action = ActionCreate
			result.failed(entry, fmt.Errorf("compare immunization: %w", err))
			return draft, false
		}
		if equal {
			entry.Record = existing
			result.skipped(entry)
			if e.opts.Verbose {
				e.logger.Debug().Int("index", index).Str("subject", entry.Subject).Msg("immunization already recorded")
			}
			return draft, false
		}
	}

	created, err := e.remote.CreateImmunization(ctx, draft)
	if err == nil {
		created, err = validation.ValidateImmunization(created)
	}
	if err != nil {
		entry.Action = ActionCreate
		result.failed(entry, err)
		e.logger.Warn().Err(err).Int("index", index).Str("subject", entry.Subject).Msg("immunization create failed")
		return draft, false
	}

	entry.Record = created
	result.created(entry)
	if e.opts.Verbose {
		e.logger.Debug().Int("index", index).Str("subject", entry.Subject).Str("id", created.ID).Msg("immunization created")
	}
	return draft, true
}
