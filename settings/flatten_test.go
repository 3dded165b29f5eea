package settings

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFlattenOmitsDefaultsAndRestricted(t *testing.T) {
	doc := sampleDocument()
	def := staticProfileDefinition()
	ps := LoadProfile(Initialize(doc), doc, def, false, "static")

	// ttl is restricted for unprivileged users, generate_alert diverges.
	ps.TTL.Value = float64(90)
	ps.GenerateAlert.Value = true

	out := Flatten(doc, ps, "static")
	params := out.SubmissionProfiles["static"]
	if params == nil {
		t.Fatalf("flatten must write the active profile")
	}
	if _, ok := params.Params["ttl"]; ok {
		t.Fatalf("restricted ttl must be omitted from the stored profile")
	}
	if got := params.Params["generate_alert"]; got != true {
		t.Fatalf("generate_alert = %v, want true", got)
	}
	if _, ok := params.Params["ignore_cache"]; ok {
		t.Fatalf("param matching its default must be omitted")
	}
}

func TestFlattenCollapsesFullCategories(t *testing.T) {
	doc := sampleDocument()
	ps := LoadDefaultProfile(Initialize(doc), doc, true)

	out := Flatten(doc, ps, "interface")
	params := out.SubmissionProfiles["default"]
	if params == nil {
		t.Fatalf("the interface profile must map onto %q", "default")
	}
	if !reflect.DeepEqual(params.Services.Selected, []string{"Static Analysis"}) {
		t.Fatalf("fully selected category must collapse to its name, got %v", params.Services.Selected)
	}

	ps = SetServiceSelected(ps, "Static Analysis", "Extract", false)
	out = Flatten(doc, ps, "default")
	got := out.SubmissionProfiles["default"].Services.Selected
	if !reflect.DeepEqual(got, []string{"YARA"}) {
		t.Fatalf("partial category must list individual services, got %v", got)
	}
}

func TestFlattenEmitsEmptySelectionLists(t *testing.T) {
	out := Flatten(nil, Initialize(nil), "default")
	services := out.SubmissionProfiles["default"].Services
	if services.Selected == nil || services.Excluded == nil || services.Rescan == nil || services.Resubmit == nil {
		t.Fatalf("selection lists must be present and empty, got %+v", services)
	}
}

func TestFlattenSpecOverrides(t *testing.T) {
	doc := sampleDocument()
	ps := LoadDefaultProfile(Initialize(doc), doc, true)

	depth := findSpecParam(t, ps, "Extract", "max_depth")
	depth.Value = float64(12)

	out := Flatten(doc, ps, "default")
	overrides := out.SubmissionProfiles["default"].ServiceSpec["Extract"]
	if !valueEqual(overrides["max_depth"], 12) {
		t.Fatalf("diverging spec param must be stored, got %v", overrides)
	}
	if _, ok := overrides["password"]; ok {
		t.Fatalf("spec param matching its default must be omitted")
	}
}

func TestFlattenSerializesInitialData(t *testing.T) {
	ps := Initialize(sampleDocument())
	ps, err := SetInitialData(ps, `{"passwords": ["infected"]}`)
	if err != nil {
		t.Fatalf("set initial data: %v", err)
	}

	out := Flatten(nil, ps, "default")
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out.InitialData), &decoded); err != nil {
		t.Fatalf("initial_data must be a JSON string: %v", err)
	}
	if got := decoded["passwords"]; !reflect.DeepEqual(got, []any{"infected"}) {
		t.Fatalf("passwords = %v", got)
	}
}

func TestFlattenPreservesOtherProfiles(t *testing.T) {
	doc := sampleDocument()
	ps := LoadDefaultProfile(Initialize(doc), doc, true)

	out := Flatten(doc, ps, "default")
	static := out.SubmissionProfiles["static"]
	if static == nil || static.Params["deep_scan"] != true {
		t.Fatalf("flatten must carry over the other saved profiles, got %+v", static)
	}
}

func TestFlattenRoundTripsThroughInitialize(t *testing.T) {
	doc := sampleDocument()
	ps := LoadDefaultProfile(Initialize(doc), doc, true)
	ps.DownloadEncoding.Value = "zip"
	ps = SetServiceSelected(ps, "Static Analysis", "YARA", false)

	flat := Flatten(doc, ps, "default")
	reborn := Initialize(flat)

	if reborn.DownloadEncoding.Value != "zip" {
		t.Fatalf("interface edit lost in round trip")
	}
	static := findCategory(t, reborn, "Static Analysis")
	var yara *Service
	for i := range static.Services {
		if static.Services[i].Name == "YARA" {
			yara = &static.Services[i]
		}
	}
	if yara == nil || yara.Selected {
		t.Fatalf("service selection lost in round trip")
	}
	if DiffersFromPrev(reborn) {
		t.Fatalf("re-initialized settings must start clean")
	}
}

func TestProfileParamsDocJSONRoundTrip(t *testing.T) {
	raw := `{"deep_scan": true, "ttl": 15, "services": {"selected": ["YARA"], "excluded": [], "rescan": [], "resubmit": []}, "service_spec": {"Extract": {"max_depth": 8}}}`
	var doc ProfileParamsDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Params["deep_scan"] != true || !valueEqual(doc.Params["ttl"], 15) {
		t.Fatalf("flat params not split out: %+v", doc.Params)
	}
	if !reflect.DeepEqual(doc.Services.Selected, []string{"YARA"}) {
		t.Fatalf("services member not decoded: %+v", doc.Services)
	}
	if !valueEqual(doc.ServiceSpec["Extract"]["max_depth"], 8) {
		t.Fatalf("service_spec member not decoded: %+v", doc.ServiceSpec)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again ProfileParamsDoc
	if err := json.Unmarshal(encoded, &again); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !reflect.DeepEqual(again.Params, doc.Params) {
		t.Fatalf("params changed in round trip: %+v", again.Params)
	}
}

func TestDescriptorsReportDirtiness(t *testing.T) {
	doc := sampleDocument()
	ps := LoadDefaultProfile(Initialize(doc), doc, true)
	ps.DownloadEncoding.Value = "zip"
	ps.TTL.Value = float64(90)

	byPath := map[string]FieldDescriptor{}
	for _, desc := range Descriptors(ps) {
		byPath[desc.Path] = desc
	}

	encoding, ok := byPath["download_encoding.value"]
	if !ok || !encoding.DirtyFromPrev {
		t.Fatalf("edited interface slot must report dirty: %+v", encoding)
	}
	ttl := byPath["ttl.value"]
	if !ttl.DirtyFromPrev || !ttl.DirtyFromDefault {
		t.Fatalf("edited ttl must report both dirty flags: %+v", ttl)
	}
	if ttl.Kind != KindInt {
		t.Fatalf("ttl kind = %q", ttl.Kind)
	}
	if deep := byPath["deep_scan.value"]; deep.DirtyFromPrev {
		t.Fatalf("untouched param must be clean: %+v", deep)
	}
	if _, ok := byPath["initial_data.value"]; !ok {
		t.Fatalf("initial_data descriptor missing")
	}
}

func TestDescriptorPathsResolveAgainstSettings(t *testing.T) {
	doc := sampleDocument()
	ps := LoadDefaultProfile(Initialize(doc), doc, true)

	for _, desc := range Descriptors(ps) {
		if desc.Path == "" {
			t.Fatalf("descriptor with empty path: %+v", desc)
		}
	}
}
