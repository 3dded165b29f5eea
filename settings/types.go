// Package settings implements the three-way reconciliation model behind the
// submission and user-settings pages. Every editable field tracks its live
// value, the last saved value and the active profile's mandated default, and
// the engine derives dirty/reset/restricted semantics from those three.
//
// All engine functions are pure: they clone their input, transform the clone
// and return it, so they compose directly with the store's copy-on-write
// commits (`store.UpdateField("settings", ...)`).
package settings

import (
	"reflect"
	"sort"
)

// Slot tracks an interface-scoped setting: the live edit buffer plus the last
// externally-committed value. Interface settings have no profile default.
type Slot[T comparable] struct {
	Value T `json:"value"`
	Prev  T `json:"prev"`
}

func (s *Slot[T]) differsFromPrev() bool { return s.Value != s.Prev }
func (s *Slot[T]) resetToPrev()          { s.Value = s.Prev }
func (s *Slot[T]) commitPrev()           { s.Prev = s.Value }

// StringListSlot tracks an interface-scoped string list. Comparison is
// order-insensitive so reordering sources is not treated as an edit.
type StringListSlot struct {
	Value []string `json:"value"`
	Prev  []string `json:"prev"`
}

func (s *StringListSlot) differsFromPrev() bool { return !stringSetEqual(s.Value, s.Prev) }
func (s *StringListSlot) resetToPrev()          { s.Value = append([]string(nil), s.Prev...) }
func (s *StringListSlot) commitPrev()           { s.Prev = append([]string(nil), s.Value...) }

// slotOps is the traversal interface shared by the interface-scoped slots.
type slotOps interface {
	differsFromPrev() bool
	resetToPrev()
	commitPrev()
}

// ProfileParam tracks a profile-scoped setting. Values are dynamically typed
// to mirror the settings document: nil means "unknown until a profile is
// loaded" for Value/Prev and "unconstrained by the active profile" for
// Default. A nil Default never counts as dirty-from-default.
type ProfileParam struct {
	Value      any  `json:"value"`
	Prev       any  `json:"prev"`
	Default    any  `json:"default"`
	Restricted bool `json:"restricted"`
}

func (p *ProfileParam) differsFromPrev() bool { return !valueEqual(p.Value, p.Prev) }

func (p *ProfileParam) differsFromDefault() bool {
	return p.Default != nil && !valueEqual(p.Value, p.Default)
}

func (p *ProfileParam) resetToPrev() { p.Value = p.Prev }

func (p *ProfileParam) resetToDefault() {
	if p.Default != nil {
		p.Value = p.Default
	}
}

func (p *ProfileParam) commitPrev() { p.Prev = p.Value }

// Service is an individually selectable analysis service.
type Service struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Selected    bool   `json:"selected"`
	Default     bool   `json:"default"`
	Prev        bool   `json:"prev"`
	Restricted  bool   `json:"restricted"`
}

// ServiceCategory groups services. Its selected/indeterminate states are
// always derived from the children so the two can never desynchronize; Prev
// and Default are recorded at load/commit time for diffing.
type ServiceCategory struct {
	Name       string    `json:"name"`
	Default    bool      `json:"default"`
	Prev       bool      `json:"prev"`
	Restricted bool      `json:"restricted"`
	Services   []Service `json:"services"`
}

// Selected reports whether every child service is selected. An empty
// category is never selected.
func (c *ServiceCategory) Selected() bool {
	if len(c.Services) == 0 {
		return false
	}
	for i := range c.Services {
		if !c.Services[i].Selected {
			return false
		}
	}
	return true
}

// Indeterminate reports whether some but not all child services are selected.
func (c *ServiceCategory) Indeterminate() bool {
	some := false
	all := true
	for i := range c.Services {
		if c.Services[i].Selected {
			some = true
		} else {
			all = false
		}
	}
	return some && !all
}

// setSelected cascades a category toggle to every child service.
func (c *ServiceCategory) setSelected(selected bool) {
	for i := range c.Services {
		c.Services[i].Selected = selected
	}
}

// SpecParam is one configurable parameter of a service. Type discriminates
// the widget rendering: "bool", "int", "str" or "list".
type SpecParam struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Value      any      `json:"value"`
	Default    any      `json:"default"`
	Prev       any      `json:"prev"`
	List       []string `json:"list,omitempty"`
	Restricted bool     `json:"restricted"`
}

func (p *SpecParam) differsFromPrev() bool { return !valueEqual(p.Value, p.Prev) }

func (p *SpecParam) differsFromDefault() bool {
	return p.Default != nil && !valueEqual(p.Value, p.Default)
}

// ServiceSpec lists the configurable parameters of one service.
type ServiceSpec struct {
	Name   string      `json:"name"`
	Params []SpecParam `json:"params"`
}

// InitialData is the opaque free-form JSON slot (e.g. archive passwords)
// tracked alongside the structured settings.
type InitialData struct {
	Value map[string]any `json:"value"`
	Prev  map[string]any `json:"prev"`
}

// ProfileSettings aggregates every three-way-tracked setting of one page.
type ProfileSettings struct {
	DefaultClassification      Slot[string]   `json:"default_classification"`
	DefaultExternalSources     StringListSlot `json:"default_external_sources"`
	DefaultZipPassword         Slot[string]   `json:"default_zip_password"`
	DownloadEncoding           Slot[string]   `json:"download_encoding"`
	ExecutiveSummary           Slot[bool]     `json:"executive_summary"`
	ExpandMinScore             Slot[float64]  `json:"expand_min_score"`
	Malicious                  Slot[bool]     `json:"malicious"`
	PreferredSubmissionProfile Slot[string]   `json:"preferred_submission_profile"`
	SubmissionView             Slot[string]   `json:"submission_view"`

	DeepScan                  ProfileParam `json:"deep_scan"`
	Description               ProfileParam `json:"description"`
	GenerateAlert             ProfileParam `json:"generate_alert"`
	IgnoreCache               ProfileParam `json:"ignore_cache"`
	IgnoreFiltering           ProfileParam `json:"ignore_filtering"`
	IgnoreRecursionPrevention ProfileParam `json:"ignore_recursion_prevention"`
	Priority                  ProfileParam `json:"priority"`
	TTL                       ProfileParam `json:"ttl"`

	Services    []ServiceCategory `json:"services"`
	ServiceSpec []ServiceSpec     `json:"service_spec"`
	InitialData InitialData       `json:"initial_data"`
}

// profileKeys lists the profile-scoped parameter keys in document order.
var profileKeys = []string{
	"deep_scan",
	"description",
	"generate_alert",
	"ignore_cache",
	"ignore_filtering",
	"ignore_recursion_prevention",
	"priority",
	"ttl",
}

func (ps *ProfileSettings) profileParam(key string) *ProfileParam {
	switch key {
	case "deep_scan":
		return &ps.DeepScan
	case "description":
		return &ps.Description
	case "generate_alert":
		return &ps.GenerateAlert
	case "ignore_cache":
		return &ps.IgnoreCache
	case "ignore_filtering":
		return &ps.IgnoreFiltering
	case "ignore_recursion_prevention":
		return &ps.IgnoreRecursionPrevention
	case "priority":
		return &ps.Priority
	case "ttl":
		return &ps.TTL
	default:
		return nil
	}
}

func (ps *ProfileSettings) interfaceSlots() []slotOps {
	return []slotOps{
		&ps.DefaultClassification,
		&ps.DefaultExternalSources,
		&ps.DefaultZipPassword,
		&ps.DownloadEncoding,
		&ps.ExecutiveSummary,
		&ps.ExpandMinScore,
		&ps.Malicious,
		&ps.PreferredSubmissionProfile,
		&ps.SubmissionView,
	}
}

// valueEqual compares two dynamically-typed scalar values. JSON decoding
// yields float64 for every number, while profile definitions built in Go may
// carry ints; numbers therefore compare by value regardless of width. Zero,
// false and empty strings are ordinary values, not "absent".
func valueEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// firstDefined returns the first non-nil value, or nil when every candidate
// is nil. This is the explicit fallback chain used when hydrating parameters:
// nil marks absence, never a falsy value.
func firstDefined(values ...any) any {
	for _, value := range values {
		if value != nil {
			return value
		}
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
