package reconcile

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/validation"
)

// ClientUpdater updates clients.
type ClientUpdater interface {
	UpdateClient(ctx context.Context, id string, input map[string]any) (*types.Client, error)
}

// LocationUpdate is the outcome of UpdateLocations.
type LocationUpdate struct {
	Updated int     `json:"updated"`
	Skipped int     `json:"skipped"`
	Failed  int     `json:"failed"`
	Errors  []Entry `json:"errors"`
}

// UpdateLocations moves imported clients to locationID. A client counts as
// imported when its notes (or private notes) contain marker. Clients that
// are not imported, or already at locationID, are skipped.
func UpdateLocations(ctx context.Context, remote ClientUpdater, clients []types.Client, locationID, marker string, logger zerolog.Logger) (LocationUpdate, error) {
	out := LocationUpdate{Errors: []Entry{}}
	if strings.TrimSpace(locationID) == "" {
		return out, ErrMissingLocation
	}

	for i, c := range clients {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if !imported(c, marker) || c.PrimaryLocationID == locationID {
			out.Skipped++
			continue
		}

		updated, err := remote.UpdateClient(ctx, c.ID, map[string]any{"primaryLocationId": locationID})
		if err == nil {
			_, err = validation.ValidateClientID(updated)
		}
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, Entry{
				Entity:    EntityClient,
				Index:     i,
				Subject:   c.FamilyName + ", " + c.GivenName,
				Action:    ActionUpdate,
				Error:     err.Error(),
				Timestamp: timeNow(),
			})
			logger.Warn().Err(err).Str("client_id", c.ID).Msg("location update failed")
			continue
		}

		out.Updated++
		logger.Debug().Str("client_id", c.ID).Str("from", c.PrimaryLocationID).Str("to", locationID).Msg("location updated")
	}

	return out, nil
}

func imported(c types.Client, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(c.Notes, marker) || strings.Contains(c.PrivateNotes, marker)
}
