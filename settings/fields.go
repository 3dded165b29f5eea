package settings

import "fmt"

// FieldKind classifies a tracked field for widget rendering.
type FieldKind string

const (
	KindBool FieldKind = "bool"
	KindInt  FieldKind = "int"
	KindStr  FieldKind = "str"
	KindList FieldKind = "list"
	KindJSON FieldKind = "json"
)

// FieldDescriptor summarizes one tracked field: its store path relative to
// the settings root, its kind, and its current dirtiness. The UI uses this to
// render per-field reset affordances without walking the tree itself.
type FieldDescriptor struct {
	Path             string    `json:"path"`
	Kind             FieldKind `json:"kind"`
	Restricted       bool      `json:"restricted"`
	DirtyFromPrev    bool      `json:"dirty_from_prev"`
	DirtyFromDefault bool      `json:"dirty_from_default"`
}

// Descriptors enumerates every tracked field in render order: interface
// slots, profile parameters, service selections, then spec parameters.
func Descriptors(ps *ProfileSettings) []FieldDescriptor {
	if ps == nil {
		return nil
	}

	out := []FieldDescriptor{
		interfaceDescriptor("default_classification", KindStr, &ps.DefaultClassification),
		{
			Path:          "default_external_sources.value",
			Kind:          KindList,
			DirtyFromPrev: ps.DefaultExternalSources.differsFromPrev(),
		},
		interfaceDescriptor("default_zip_password", KindStr, &ps.DefaultZipPassword),
		interfaceDescriptor("download_encoding", KindStr, &ps.DownloadEncoding),
		interfaceDescriptor("executive_summary", KindBool, &ps.ExecutiveSummary),
		interfaceDescriptor("expand_min_score", KindInt, &ps.ExpandMinScore),
		interfaceDescriptor("malicious", KindBool, &ps.Malicious),
		interfaceDescriptor("preferred_submission_profile", KindStr, &ps.PreferredSubmissionProfile),
		interfaceDescriptor("submission_view", KindStr, &ps.SubmissionView),
	}

	for _, key := range profileKeys {
		param := ps.profileParam(key)
		out = append(out, FieldDescriptor{
			Path:             key + ".value",
			Kind:             profileParamKind(key),
			Restricted:       param.Restricted,
			DirtyFromPrev:    param.differsFromPrev(),
			DirtyFromDefault: param.differsFromDefault(),
		})
	}

	for i := range ps.Services {
		cat := &ps.Services[i]
		for j := range cat.Services {
			svc := &cat.Services[j]
			out = append(out, FieldDescriptor{
				Path:             fmt.Sprintf("services[%d].services[%d].selected", i, j),
				Kind:             KindBool,
				Restricted:       svc.Restricted,
				DirtyFromPrev:    svc.Selected != svc.Prev,
				DirtyFromDefault: svc.Selected != svc.Default,
			})
		}
	}

	for i := range ps.ServiceSpec {
		spec := &ps.ServiceSpec[i]
		for j := range spec.Params {
			param := &spec.Params[j]
			out = append(out, FieldDescriptor{
				Path:             fmt.Sprintf("service_spec[%d].params[%d].value", i, j),
				Kind:             specParamKind(param.Type),
				Restricted:       param.Restricted,
				DirtyFromPrev:    param.differsFromPrev(),
				DirtyFromDefault: param.differsFromDefault(),
			})
		}
	}

	out = append(out, FieldDescriptor{
		Path:          "initial_data.value",
		Kind:          KindJSON,
		DirtyFromPrev: !valueEqual(ps.InitialData.Value, ps.InitialData.Prev),
	})

	return out
}

type interfaceSlot interface {
	differsFromPrev() bool
}

func interfaceDescriptor(key string, kind FieldKind, slot interfaceSlot) FieldDescriptor {
	return FieldDescriptor{
		Path:          key + ".value",
		Kind:          kind,
		DirtyFromPrev: slot.differsFromPrev(),
	}
}

func profileParamKind(key string) FieldKind {
	switch key {
	case "priority", "ttl":
		return KindInt
	case "description":
		return KindStr
	default:
		return KindBool
	}
}

func specParamKind(paramType string) FieldKind {
	switch paramType {
	case "bool":
		return KindBool
	case "int":
		return KindInt
	case "list":
		return KindList
	default:
		return KindStr
	}
}
