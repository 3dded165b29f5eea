package settings

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidInitialData flags a free-form payload that is not a JSON object.
var ErrInvalidInitialData = errors.New("settings: initial_data must be a JSON object")

// DefaultInitialData is the baseline free-form payload: an empty password
// list.
func DefaultInitialData() map[string]any {
	return map[string]any{"passwords": []any{}}
}

// ParseInitialData decodes the JSON-encoded free-form slot from a document.
// Blank input yields the baseline payload; anything else must be a JSON
// object.
func ParseInitialData(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultInitialData(), nil
	}
	if !gjson.Valid(raw) {
		return nil, ErrInvalidInitialData
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return nil, ErrInvalidInitialData
	}
	value, ok := parsed.Value().(map[string]any)
	if !ok {
		return nil, ErrInvalidInitialData
	}
	return value, nil
}

// SetInitialData replaces the free-form slot on a settings clone with the
// decoded payload. The saved baseline is untouched so the change shows up as
// divergence from prev.
func SetInitialData(ps *ProfileSettings, raw string) (*ProfileSettings, error) {
	value, err := ParseInitialData(raw)
	if err != nil {
		return nil, err
	}
	out := clonePS(ps)
	out.InitialData.Value = value
	return out, nil
}
