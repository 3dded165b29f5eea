package settings

import (
	"reflect"

	"github.com/CybercentreCanada/assemblyline-ui-state/internal/deep"
)

// DiffersFromPrev reports whether any tracked field diverges from its last
// saved value. It never mutates its input.
func DiffersFromPrev(ps *ProfileSettings) bool {
	if ps == nil {
		return false
	}

	for _, slot := range ps.interfaceSlots() {
		if slot.differsFromPrev() {
			return true
		}
	}
	for _, key := range profileKeys {
		if ps.profileParam(key).differsFromPrev() {
			return true
		}
	}
	for i := range ps.Services {
		cat := &ps.Services[i]
		if cat.Selected() != cat.Prev {
			return true
		}
		for j := range cat.Services {
			if cat.Services[j].Selected != cat.Services[j].Prev {
				return true
			}
		}
	}
	for i := range ps.ServiceSpec {
		for j := range ps.ServiceSpec[i].Params {
			if ps.ServiceSpec[i].Params[j].differsFromPrev() {
				return true
			}
		}
	}
	return !reflect.DeepEqual(ps.InitialData.Value, ps.InitialData.Prev)
}

// DiffersFromDefault reports whether any profile-scoped field diverges from
// the default mandated by the active profile. Fields the profile does not
// constrain (nil default) are never counted.
func DiffersFromDefault(ps *ProfileSettings) bool {
	if ps == nil {
		return false
	}

	for _, key := range profileKeys {
		if ps.profileParam(key).differsFromDefault() {
			return true
		}
	}
	for i := range ps.Services {
		cat := &ps.Services[i]
		if cat.Selected() != cat.Default {
			return true
		}
		for j := range cat.Services {
			if cat.Services[j].Selected != cat.Services[j].Default {
				return true
			}
		}
	}
	for i := range ps.ServiceSpec {
		for j := range ps.ServiceSpec[i].Params {
			if ps.ServiceSpec[i].Params[j].differsFromDefault() {
				return true
			}
		}
	}
	return false
}

// ResetToPrev discards live edits, restoring every field to its last saved
// value.
func ResetToPrev(ps *ProfileSettings) *ProfileSettings {
	out := deep.Clone(ps)
	if out == nil {
		return nil
	}

	for _, slot := range out.interfaceSlots() {
		slot.resetToPrev()
	}
	for _, key := range profileKeys {
		out.profileParam(key).resetToPrev()
	}
	for i := range out.Services {
		cat := &out.Services[i]
		for j := range cat.Services {
			cat.Services[j].Selected = cat.Services[j].Prev
		}
	}
	for i := range out.ServiceSpec {
		for j := range out.ServiceSpec[i].Params {
			param := &out.ServiceSpec[i].Params[j]
			param.Value = deep.Clone(param.Prev)
		}
	}
	out.InitialData.Value = deep.Clone(out.InitialData.Prev)
	return out
}

// ResetToDefault restores every profile-constrained field to its mandated
// default. Interface slots and unconstrained fields keep their values.
func ResetToDefault(ps *ProfileSettings) *ProfileSettings {
	out := deep.Clone(ps)
	if out == nil {
		return nil
	}

	for _, key := range profileKeys {
		out.profileParam(key).resetToDefault()
	}
	for i := range out.Services {
		cat := &out.Services[i]
		for j := range cat.Services {
			cat.Services[j].Selected = cat.Services[j].Default
		}
	}
	for i := range out.ServiceSpec {
		for j := range out.ServiceSpec[i].Params {
			param := &out.ServiceSpec[i].Params[j]
			if param.Default != nil {
				param.Value = deep.Clone(param.Default)
			}
		}
	}
	return out
}

// CommitPrev records the live values as the new saved baseline, typically
// after a successful save. The result reports no divergence from prev.
func CommitPrev(ps *ProfileSettings) *ProfileSettings {
	out := deep.Clone(ps)
	if out == nil {
		return nil
	}

	for _, slot := range out.interfaceSlots() {
		slot.commitPrev()
	}
	for _, key := range profileKeys {
		out.profileParam(key).commitPrev()
	}
	for i := range out.Services {
		cat := &out.Services[i]
		cat.Prev = cat.Selected()
		for j := range cat.Services {
			cat.Services[j].Prev = cat.Services[j].Selected
		}
	}
	for i := range out.ServiceSpec {
		for j := range out.ServiceSpec[i].Params {
			param := &out.ServiceSpec[i].Params[j]
			param.Prev = deep.Clone(param.Value)
		}
	}
	out.InitialData.Prev = deep.Clone(out.InitialData.Value)
	return out
}

// SetCategorySelected toggles a whole category, cascading to every child
// service. Restricted categories are left untouched.
func SetCategorySelected(ps *ProfileSettings, name string, selected bool) *ProfileSettings {
	out := deep.Clone(ps)
	if out == nil {
		return nil
	}
	for i := range out.Services {
		cat := &out.Services[i]
		if cat.Name != name || cat.Restricted {
			continue
		}
		cat.setSelected(selected)
	}
	return out
}

// SetServiceSelected toggles a single service by category and name.
func SetServiceSelected(ps *ProfileSettings, category, name string, selected bool) *ProfileSettings {
	out := deep.Clone(ps)
	if out == nil {
		return nil
	}
	for i := range out.Services {
		cat := &out.Services[i]
		if cat.Name != category {
			continue
		}
		for j := range cat.Services {
			svc := &cat.Services[j]
			if svc.Name != name || svc.Restricted {
				continue
			}
			svc.Selected = selected
		}
	}
	return out
}
