package immunization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

// ReadProposals loads the drafts from a proposals file. The file may be the
// full File object or a bare array of drafts.
func ReadProposals(path string) ([]types.ImmunizationInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposals: %w", err)
	}
	return ParseProposals(data)
}

// ParseProposals decodes proposals content. See ReadProposals.
func ParseProposals(data []byte) ([]types.ImmunizationInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("proposals file is empty")
	}

	var drafts []types.ImmunizationInput
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &drafts); err != nil {
			return nil, fmt.Errorf("invalid proposals array: %w", err)
		}
	case '{':
		var f File
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("invalid proposals file: %w", err)
		}
		drafts = f.Proposals
	default:
		return nil, fmt.Errorf("proposals must be a JSON array or an object with a proposals list")
	}

	if drafts == nil {
		drafts = []types.ImmunizationInput{}
	}
	return drafts, nil
}
