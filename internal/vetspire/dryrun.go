package vetspire

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

// DryRunPrefix starts every placeholder id handed out in dry-run mode.
const DryRunPrefix = "dry-run-"

// DryRun stands in for Client when no request may leave the machine. Each
// mutation logs the payload it would have sent and returns a placeholder
// record built from that payload. It is not rate limited.
type DryRun struct {
	logger zerolog.Logger
	calls  atomic.Int64
}

// NewDryRun creates a DryRun.
func NewDryRun(logger zerolog.Logger) *DryRun {
	return &DryRun{logger: logger.With().Str("component", "vetspire").Bool("dry_run", true).Logger()}
}

// Calls returns the number of mutations that were short-circuited.
func (d *DryRun) Calls() int64 {
	return d.calls.Load()
}

// placeholder logs the would-be payload and decodes it into T.
func placeholder[T any](d *DryRun, op string, payload any) *T {
	d.calls.Add(1)

	raw, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn().Err(err).Str("op", op).Msg("could not encode dry-run payload")
		return new(T)
	}
	d.logger.Info().Str("op", op).RawJSON("input", raw).Msg("dry run: request not sent")

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		d.logger.Warn().Err(err).Str("op", op).Msg("could not build dry-run placeholder")
	}
	return out
}

func placeholderID() string {
	return DryRunPrefix + uuid.NewString()
}

// CreateClient returns a placeholder client.
func (d *DryRun) CreateClient(_ context.Context, input types.ClientInput) (*types.Client, error) {
	c := placeholder[types.Client](d, "createClient", input)
	c.ID = placeholderID()
	return c, nil
}

// UpdateClient returns the payload applied to a placeholder client with id.
func (d *DryRun) UpdateClient(_ context.Context, id string, input map[string]any) (*types.Client, error) {
	c := placeholder[types.Client](d, "updateClient", input)
	c.ID = id
	return c, nil
}

// CreatePatient returns a placeholder patient owned by clientID.
func (d *DryRun) CreatePatient(_ context.Context, clientID string, input types.PatientInput) (*types.Patient, error) {
	p := placeholder[types.Patient](d, "createPatient", input)
	p.ID = placeholderID()
	p.Client = &types.Client{ID: clientID}
	return p, nil
}

// UpdatePatient returns the payload applied to a placeholder patient with id.
func (d *DryRun) UpdatePatient(_ context.Context, id string, input map[string]any) (*types.Patient, error) {
	p := placeholder[types.Patient](d, "updatePatient", input)
	p.ID = id
	return p, nil
}

// CreateImmunization returns a placeholder immunization.
func (d *DryRun) CreateImmunization(_ context.Context, input types.ImmunizationInput) (*types.Immunization, error) {
	im := placeholder[types.Immunization](d, "createImmunization", input)
	im.ID = placeholderID()
	im.Patient = &types.Ref{ID: input.PatientID}
	if input.LocationID != "" {
		im.Location = &types.Ref{ID: input.LocationID}
	}
	if input.ProviderID != "" {
		im.Provider = &types.Ref{ID: input.ProviderID}
	}
	return im, nil
}
