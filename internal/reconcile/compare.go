package reconcile

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// readOnlyKeys never appear in an update payload.
var readOnlyKeys = map[string]bool{
	"id":            true,
	"client":        true,
	"immunizations": true,
}

// toMap encodes v through its JSON tags, so comparisons see the same field
// names the API does.
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	return out, nil
}

// Subset reports whether every key of expected, other than the ignored ones,
// holds an equal value in actual. Nested objects compare the same way, so
// fields only the remote side carries (ids, timestamps) are ignored at every
// level. An empty list on the expected side matches a missing one.
func Subset(expected, actual any, ignore ...string) (bool, error) {
	e, err := toMap(expected)
	if err != nil {
		return false, err
	}
	a, err := toMap(actual)
	if err != nil {
		return false, err
	}
	skip := make(map[string]bool, len(ignore))
	for _, k := range ignore {
		skip[k] = true
	}
	return subsetMap(e, a, skip), nil
}

func subsetMap(expected, actual map[string]any, skip map[string]bool) bool {
	for k, ev := range expected {
		if skip[k] {
			continue
		}
		if !subsetValue(ev, actual[k]) {
			return false
		}
	}
	return true
}

func subsetValue(expected, actual any) bool {
	switch ev := expected.(type) {
	case map[string]any:
		av, ok := actual.(map[string]any)
		return ok && subsetMap(ev, av, nil)
	case []any:
		if actual == nil {
			return len(ev) == 0
		}
		av, ok := actual.([]any)
		if !ok || len(av) != len(ev) {
			return false
		}
		for i := range ev {
			if !subsetValue(ev[i], av[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

// Equal reports whether a and b encode to the same JSON object once the
// ignored keys are removed from both.
func Equal(a, b any, ignore ...string) (bool, error) {
	am, err := toMap(a)
	if err != nil {
		return false, err
	}
	bm, err := toMap(b)
	if err != nil {
		return false, err
	}
	for _, k := range ignore {
		delete(am, k)
		delete(bm, k)
	}
	return reflect.DeepEqual(am, bm), nil
}

// MergePayload overlays input onto the remote record and drops the
// read-only keys, giving the body of an update.
func MergePayload(remote, input any) (map[string]any, error) {
	merged, err := toMap(remote)
	if err != nil {
		return nil, err
	}
	in, err := toMap(input)
	if err != nil {
		return nil, err
	}
	for k, v := range in {
		merged[k] = v
	}
	for k := range readOnlyKeys {
		delete(merged, k)
	}
	return merged, nil
}
