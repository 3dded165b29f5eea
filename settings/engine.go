package settings

import (
	"sort"

	"github.com/CybercentreCanada/assemblyline-ui-state/internal/deep"
)

// Initialize builds the three-way tracked settings from a raw document. Every
// interface slot seeds prev from its current value; profile-scoped fields
// start unknown and locked until a profile is loaded. Service and spec trees
// are sorted lexically so list rendering is stable.
func Initialize(doc *Document) *ProfileSettings {
	if doc == nil {
		doc = &Document{}
	}

	ps := &ProfileSettings{
		DefaultClassification:      Slot[string]{Value: doc.DefaultClassification, Prev: doc.DefaultClassification},
		DefaultZipPassword:         Slot[string]{Value: doc.DefaultZipPassword, Prev: doc.DefaultZipPassword},
		DownloadEncoding:           Slot[string]{Value: doc.DownloadEncoding, Prev: doc.DownloadEncoding},
		ExecutiveSummary:           Slot[bool]{Value: doc.ExecutiveSummary, Prev: doc.ExecutiveSummary},
		ExpandMinScore:             Slot[float64]{Value: doc.ExpandMinScore, Prev: doc.ExpandMinScore},
		Malicious:                  Slot[bool]{Value: doc.Malicious, Prev: doc.Malicious},
		PreferredSubmissionProfile: Slot[string]{Value: doc.PreferredSubmissionProfile, Prev: doc.PreferredSubmissionProfile},
		SubmissionView:             Slot[string]{Value: doc.SubmissionView, Prev: doc.SubmissionView},
	}
	ps.DefaultExternalSources = StringListSlot{
		Value: append([]string(nil), doc.DefaultExternalSources...),
		Prev:  append([]string(nil), doc.DefaultExternalSources...),
	}

	for _, key := range profileKeys {
		*ps.profileParam(key) = ProfileParam{Restricted: true}
	}

	ps.Services = initServices(doc.Services)
	ps.ServiceSpec = initServiceSpec(doc.ServiceSpec)
	ps.InitialData = initInitialData(doc.InitialData)

	return ps
}

func initServices(categories []CategoryDoc) []ServiceCategory {
	out := make([]ServiceCategory, 0, len(categories))
	for _, cat := range categories {
		services := make([]Service, 0, len(cat.Services))
		for _, svc := range cat.Services {
			services = append(services, Service{
				Name:        svc.Name,
				Category:    svc.Category,
				Description: svc.Description,
				Selected:    svc.Selected,
				Default:     false,
				Prev:        svc.Selected,
				Restricted:  true,
			})
		}
		sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
		category := ServiceCategory{
			Name:       cat.Name,
			Default:    false,
			Restricted: true,
			Services:   services,
		}
		// The baseline comes from the children, not the document's stored
		// category flag, so the two can never disagree right after load.
		category.Prev = category.Selected()
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func initServiceSpec(specs []SpecDoc) []ServiceSpec {
	out := make([]ServiceSpec, 0, len(specs))
	for _, spec := range specs {
		params := make([]SpecParam, 0, len(spec.Params))
		for _, param := range spec.Params {
			params = append(params, SpecParam{
				Name:       param.Name,
				Type:       param.Type,
				Value:      deep.Clone(param.Value),
				Default:    deep.Clone(param.Default),
				Prev:       deep.Clone(param.Value),
				List:       append([]string(nil), param.List...),
				Restricted: true,
			})
		}
		sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
		out = append(out, ServiceSpec{Name: spec.Name, Params: params})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func initInitialData(raw string) InitialData {
	value, err := ParseInitialData(raw)
	if err != nil {
		value = DefaultInitialData()
	}
	return InitialData{Value: value, Prev: deep.Clone(value)}
}

// LoadDefaultProfile applies the saved "default" profile onto the settings:
// profile-scoped keys, service selection and spec parameters all become
// editable (subject to privilege) with value, prev and default hydrated from
// the saved overrides. Missing profile data leaves the settings untouched.
func LoadDefaultProfile(ps *ProfileSettings, doc *Document, privileged bool) *ProfileSettings {
	out := clonePS(ps)
	if doc == nil {
		return out
	}
	profile, ok := doc.SubmissionProfiles["default"]
	if !ok || profile == nil {
		return out
	}

	for _, key := range profileKeys {
		// Keys the profile does not carry keep their pre-existing slot,
		// including the locked state seeded by Initialize.
		if !profile.hasParam(key) {
			continue
		}
		value := profile.Param(key)
		*out.profileParam(key) = ProfileParam{
			Value:      value,
			Prev:       value,
			Default:    value,
			Restricted: !privileged,
		}
	}

	selected := profile.selectedServices()
	for i := range out.Services {
		cat := &out.Services[i]
		catSelected := contains(selected, cat.Name)
		cat.Default = catSelected
		cat.Prev = catSelected
		cat.Restricted = !privileged
		for j := range cat.Services {
			svc := &cat.Services[j]
			svcSelected := contains(selected, svc.Category) || contains(selected, svc.Name)
			svc.Selected = svcSelected
			svc.Default = svcSelected
			svc.Prev = svcSelected
			svc.Restricted = !privileged
		}
	}

	applySpecOverrides(out, doc, profile, nil, privileged)
	resetTransientFields(out)
	return out
}

// LoadProfile applies a named submission profile: the user's saved overrides
// provide the values, the server-side definition provides the mandated
// defaults and restrictions. A name with no saved entry leaves the settings
// untouched.
func LoadProfile(ps *ProfileSettings, doc *Document, def *ProfileDefinition, privileged bool, name string) *ProfileSettings {
	out := clonePS(ps)
	if doc == nil {
		return out
	}

	name = CanonicalProfileName(name)
	saved := doc.SubmissionProfiles[name]
	if saved == nil {
		return out
	}
	defParams := def.params()

	rehydrateInterfaceSlots(out, doc)

	for _, key := range profileKeys {
		value := saved.Param(key)
		*out.profileParam(key) = ProfileParam{
			Value:      value,
			Prev:       value,
			Default:    defParams.Param(key),
			Restricted: !privileged && def.restricted("submission", key),
		}
	}

	selected := saved.selectedServices()
	defaults := defParams.selectedServices()
	excluded := defParams.excludedServices()
	for i := range out.Services {
		cat := &out.Services[i]
		cat.Default = contains(defaults, cat.Name)
		cat.Prev = contains(selected, cat.Name)
		cat.Restricted = !privileged && contains(excluded, cat.Name)
		for j := range cat.Services {
			svc := &cat.Services[j]
			svcSelected := contains(selected, svc.Category) || contains(selected, svc.Name)
			svc.Selected = svcSelected
			svc.Prev = svcSelected
			svc.Default = contains(defaults, svc.Category) || contains(defaults, svc.Name)
			svc.Restricted = !privileged && (contains(excluded, svc.Category) || contains(excluded, svc.Name))
		}
	}

	applySpecOverrides(out, doc, saved, def, privileged)
	resetTransientFields(out)
	return out
}

// applySpecOverrides hydrates spec parameter values with the profile override
// chain: saved profile value, then plain document value, then the current
// value. Defaults come from the definition's overrides, then the document.
// Only explicit nils count as absent.
func applySpecOverrides(out *ProfileSettings, doc *Document, saved *ProfileParamsDoc, def *ProfileDefinition, privileged bool) {
	defParams := def.params()
	for i := range out.ServiceSpec {
		spec := &out.ServiceSpec[i]
		docSpec := findSpecDoc(doc.ServiceSpec, spec.Name)
		for j := range spec.Params {
			param := &spec.Params[j]
			var docValue, docDefault any
			if docParam := findSpecParamDoc(docSpec, param.Name); docParam != nil {
				docValue = docParam.Value
				docDefault = docParam.Default
			}

			value := firstDefined(saved.specParam(spec.Name, param.Name), docValue, param.Value)
			param.Value = value
			param.Prev = deep.Clone(value)
			param.Default = firstDefined(defParams.specParam(spec.Name, param.Name), docDefault, param.Default)
			if def != nil {
				param.Restricted = !privileged && def.restricted(spec.Name, param.Name)
			} else {
				param.Restricted = !privileged
			}
		}
	}
}

// rehydrateInterfaceSlots refreshes interface values from the document on a
// profile switch, keeping edits from leaking across profiles.
func rehydrateInterfaceSlots(out *ProfileSettings, doc *Document) {
	out.DefaultClassification = Slot[string]{Value: doc.DefaultClassification, Prev: doc.DefaultClassification}
	out.DefaultExternalSources = StringListSlot{
		Value: append([]string(nil), doc.DefaultExternalSources...),
		Prev:  append([]string(nil), doc.DefaultExternalSources...),
	}
	out.DefaultZipPassword = Slot[string]{Value: doc.DefaultZipPassword, Prev: doc.DefaultZipPassword}
	out.DownloadEncoding = Slot[string]{Value: doc.DownloadEncoding, Prev: doc.DownloadEncoding}
	out.ExecutiveSummary = Slot[bool]{Value: doc.ExecutiveSummary, Prev: doc.ExecutiveSummary}
	out.ExpandMinScore = Slot[float64]{Value: doc.ExpandMinScore, Prev: doc.ExpandMinScore}
	out.PreferredSubmissionProfile = Slot[string]{Value: doc.PreferredSubmissionProfile, Prev: doc.PreferredSubmissionProfile}
	out.SubmissionView = Slot[string]{Value: doc.SubmissionView, Prev: doc.SubmissionView}
}

// resetTransientFields restores the per-submission scratch fields to their
// baselines after any profile load.
func resetTransientFields(out *ProfileSettings) {
	out.Description = ProfileParam{Restricted: false}
	out.Malicious = Slot[bool]{Value: false, Prev: false}
	value := DefaultInitialData()
	out.InitialData = InitialData{Value: value, Prev: deep.Clone(value)}
}

func clonePS(ps *ProfileSettings) *ProfileSettings {
	out := deep.Clone(ps)
	if out == nil {
		out = &ProfileSettings{}
	}
	return out
}

func findSpecDoc(specs []SpecDoc, name string) *SpecDoc {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}

func findSpecParamDoc(spec *SpecDoc, name string) *SpecParamDoc {
	if spec == nil {
		return nil
	}
	for i := range spec.Params {
		if spec.Params[i].Name == name {
			return &spec.Params[i]
		}
	}
	return nil
}
