package settings

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the raw user-settings payload exchanged with the API. Interface
// keys carry plain values; the three-way tracking only exists in
// ProfileSettings.
type Document struct {
	DefaultClassification      string   `json:"default_classification"`
	DefaultExternalSources     []string `json:"default_external_sources"`
	DefaultZipPassword         string   `json:"default_zip_password"`
	DownloadEncoding           string   `json:"download_encoding"`
	ExecutiveSummary           bool     `json:"executive_summary"`
	ExpandMinScore             float64  `json:"expand_min_score"`
	Malicious                  bool     `json:"malicious"`
	PreferredSubmissionProfile string   `json:"preferred_submission_profile"`
	SubmissionView             string   `json:"submission_view"`

	Services    []CategoryDoc `json:"services"`
	ServiceSpec []SpecDoc     `json:"service_spec"`

	// SubmissionProfiles holds the user's saved per-profile overrides keyed
	// by profile name ("default" for the unnamed profile).
	SubmissionProfiles map[string]*ProfileParamsDoc `json:"submission_profiles,omitempty"`

	// InitialData is a JSON-encoded free-form object, stored as a string.
	InitialData string `json:"initial_data,omitempty"`
}

// CategoryDoc is a service category as serialized by the API.
type CategoryDoc struct {
	Name     string       `json:"name"`
	Selected bool         `json:"selected"`
	Services []ServiceDoc `json:"services"`
}

// ServiceDoc is one service entry of a category.
type ServiceDoc struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Selected    bool   `json:"selected"`
}

// SpecDoc is the configurable parameter list of one service.
type SpecDoc struct {
	Name   string         `json:"name"`
	Params []SpecParamDoc `json:"params"`
}

// SpecParamDoc is one parameter of a service spec.
type SpecParamDoc struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Value   any      `json:"value"`
	Default any      `json:"default"`
	List    []string `json:"list,omitempty"`
}

// ServiceSelectionDoc lists service and category names by membership role.
type ServiceSelectionDoc struct {
	Selected []string `json:"selected"`
	Excluded []string `json:"excluded"`
	Rescan   []string `json:"rescan"`
	Resubmit []string `json:"resubmit"`
}

// ProfileParamsDoc is the parameter payload of one submission profile: a flat
// bag of profile-scoped keys plus the reserved "services" and "service_spec"
// members. The flat keys stay dynamically typed because profiles only carry
// the keys they constrain.
type ProfileParamsDoc struct {
	Params      map[string]any
	Services    *ServiceSelectionDoc
	ServiceSpec map[string]map[string]any
}

// Param returns the value of a profile-scoped key, nil when unconstrained.
func (d *ProfileParamsDoc) Param(key string) any {
	if d == nil || d.Params == nil {
		return nil
	}
	return d.Params[key]
}

// hasParam distinguishes a key the profile carries (possibly with an explicit
// null) from a key it does not constrain at all.
func (d *ProfileParamsDoc) hasParam(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.Params[key]
	return ok
}

func (d *ProfileParamsDoc) specParam(service, param string) any {
	if d == nil || d.ServiceSpec == nil {
		return nil
	}
	params, ok := d.ServiceSpec[service]
	if !ok {
		return nil
	}
	return params[param]
}

func (d *ProfileParamsDoc) selectedServices() []string {
	if d == nil || d.Services == nil {
		return nil
	}
	return d.Services.Selected
}

func (d *ProfileParamsDoc) excludedServices() []string {
	if d == nil || d.Services == nil {
		return nil
	}
	return d.Services.Excluded
}

// UnmarshalJSON splits the reserved members from the flat parameter keys.
func (d *ProfileParamsDoc) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("settings: decode profile params: %w", err)
	}

	out := ProfileParamsDoc{}
	for key, value := range raw {
		switch key {
		case "services":
			services := &ServiceSelectionDoc{}
			if err := json.Unmarshal(value, services); err != nil {
				return fmt.Errorf("settings: decode profile services: %w", err)
			}
			out.Services = services
		case "service_spec":
			spec := map[string]map[string]any{}
			if err := json.Unmarshal(value, &spec); err != nil {
				return fmt.Errorf("settings: decode profile service_spec: %w", err)
			}
			out.ServiceSpec = spec
		default:
			var decoded any
			if err := json.Unmarshal(value, &decoded); err != nil {
				return fmt.Errorf("settings: decode profile param %q: %w", key, err)
			}
			if out.Params == nil {
				out.Params = map[string]any{}
			}
			out.Params[key] = decoded
		}
	}

	*d = out
	return nil
}

// MarshalJSON reassembles the flat keys and reserved members into one object.
func (d ProfileParamsDoc) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(d.Params)+2)
	for key, value := range d.Params {
		merged[key] = value
	}
	if d.Services != nil {
		merged["services"] = d.Services
	}
	if d.ServiceSpec != nil {
		merged["service_spec"] = d.ServiceSpec
	}
	return json.Marshal(merged)
}

// ProfileDefinition is a server-side submission profile: the defaults it
// mandates plus the parameters it locks for unprivileged users.
type ProfileDefinition struct {
	DisplayName string            `json:"display_name,omitempty"`
	Description string            `json:"description,omitempty"`
	Params      *ProfileParamsDoc `json:"params,omitempty"`

	// RestrictedParams maps a scope to locked parameter names. The
	// "submission" scope covers the profile-scoped keys; service names
	// scope their own spec parameters.
	RestrictedParams map[string][]string `json:"restricted_params,omitempty"`
}

func (d *ProfileDefinition) params() *ProfileParamsDoc {
	if d == nil {
		return nil
	}
	return d.Params
}

func (d *ProfileDefinition) restricted(scope, name string) bool {
	if d == nil || d.RestrictedParams == nil {
		return false
	}
	return contains(d.RestrictedParams[scope], name)
}

// ProfileNames lists the profile names saved on a document in lexical order.
func ProfileNames(doc *Document) []string {
	if doc == nil || len(doc.SubmissionProfiles) == 0 {
		return nil
	}
	names := make([]string, 0, len(doc.SubmissionProfiles))
	for name := range doc.SubmissionProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalProfileName maps the UI's "interface" pseudo-profile onto the
// stored "default" profile.
func CanonicalProfileName(name string) string {
	if name == "interface" {
		return "default"
	}
	return name
}
