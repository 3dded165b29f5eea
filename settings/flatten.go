package settings

import (
	"encoding/json"

	"github.com/CybercentreCanada/assemblyline-ui-state/internal/deep"
)

// Flatten folds the three-way tracked settings back into a raw document ready
// to persist under the given profile name. Restricted fields and fields that
// match their mandated default are omitted from the profile overrides, so the
// stored profile only records deliberate divergence. Wholly selected
// categories collapse to their category name in the selection list.
//
// Other saved profiles on the base document are carried over untouched, and
// the service trees are emitted with their live selections so the output can
// be fed back through Initialize.
func Flatten(doc *Document, ps *ProfileSettings, profile string) *Document {
	if ps == nil {
		ps = &ProfileSettings{}
	}
	profile = CanonicalProfileName(profile)

	out := &Document{
		DefaultClassification:      ps.DefaultClassification.Value,
		DefaultExternalSources:     append([]string(nil), ps.DefaultExternalSources.Value...),
		DefaultZipPassword:         ps.DefaultZipPassword.Value,
		DownloadEncoding:           ps.DownloadEncoding.Value,
		ExecutiveSummary:           ps.ExecutiveSummary.Value,
		ExpandMinScore:             ps.ExpandMinScore.Value,
		Malicious:                  ps.Malicious.Value,
		PreferredSubmissionProfile: ps.PreferredSubmissionProfile.Value,
		SubmissionView:             ps.SubmissionView.Value,
		Services:                   flattenServices(ps.Services),
		ServiceSpec:                flattenServiceSpec(ps.ServiceSpec),
	}

	out.SubmissionProfiles = map[string]*ProfileParamsDoc{}
	if doc != nil {
		for name, params := range doc.SubmissionProfiles {
			out.SubmissionProfiles[name] = deep.Clone(params)
		}
	}
	out.SubmissionProfiles[profile] = flattenProfile(ps)

	if encoded, err := json.Marshal(ps.InitialData.Value); err == nil {
		out.InitialData = string(encoded)
	}

	return out
}

func flattenProfile(ps *ProfileSettings) *ProfileParamsDoc {
	params := &ProfileParamsDoc{
		Services: &ServiceSelectionDoc{
			Selected: []string{},
			Excluded: []string{},
			Rescan:   []string{},
			Resubmit: []string{},
		},
	}

	for _, key := range profileKeys {
		param := ps.profileParam(key)
		if param.Restricted || valueEqual(param.Value, param.Default) {
			continue
		}
		if params.Params == nil {
			params.Params = map[string]any{}
		}
		params.Params[key] = param.Value
	}

	for i := range ps.Services {
		cat := &ps.Services[i]
		if cat.Selected() {
			params.Services.Selected = append(params.Services.Selected, cat.Name)
			continue
		}
		for j := range cat.Services {
			if cat.Services[j].Selected {
				params.Services.Selected = append(params.Services.Selected, cat.Services[j].Name)
			}
		}
	}

	for i := range ps.ServiceSpec {
		spec := &ps.ServiceSpec[i]
		var overrides map[string]any
		for j := range spec.Params {
			param := &spec.Params[j]
			if param.Restricted || valueEqual(param.Value, param.Default) {
				continue
			}
			if overrides == nil {
				overrides = map[string]any{}
			}
			overrides[param.Name] = param.Value
		}
		if overrides != nil {
			if params.ServiceSpec == nil {
				params.ServiceSpec = map[string]map[string]any{}
			}
			params.ServiceSpec[spec.Name] = overrides
		}
	}

	return params
}

func flattenServices(categories []ServiceCategory) []CategoryDoc {
	out := make([]CategoryDoc, 0, len(categories))
	for i := range categories {
		cat := &categories[i]
		services := make([]ServiceDoc, 0, len(cat.Services))
		for _, svc := range cat.Services {
			services = append(services, ServiceDoc{
				Name:        svc.Name,
				Category:    svc.Category,
				Description: svc.Description,
				Selected:    svc.Selected,
			})
		}
		out = append(out, CategoryDoc{
			Name:     cat.Name,
			Selected: cat.Selected(),
			Services: services,
		})
	}
	return out
}

func flattenServiceSpec(specs []ServiceSpec) []SpecDoc {
	out := make([]SpecDoc, 0, len(specs))
	for i := range specs {
		spec := &specs[i]
		params := make([]SpecParamDoc, 0, len(spec.Params))
		for _, param := range spec.Params {
			params = append(params, SpecParamDoc{
				Name:    param.Name,
				Type:    param.Type,
				Value:   deep.Clone(param.Value),
				Default: deep.Clone(param.Default),
				List:    append([]string(nil), param.List...),
			})
		}
		out = append(out, SpecDoc{Name: spec.Name, Params: params})
	}
	return out
}
