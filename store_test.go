package uistate

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/CybercentreCanada/assemblyline-ui-state/fieldpath"
	"github.com/CybercentreCanada/assemblyline-ui-state/pkg/activity"
	"github.com/CybercentreCanada/assemblyline-ui-state/settings"
)

type pageState struct {
	Settings *settings.ProfileSettings `json:"settings"`
	Banner   string                    `json:"banner"`
}

func submitPageState() pageState {
	doc := &settings.Document{
		DownloadEncoding: "cart",
		Services: []settings.CategoryDoc{
			{
				Name:     "Static Analysis",
				Selected: true,
				Services: []settings.ServiceDoc{
					{Name: "YARA", Category: "Static Analysis", Selected: true},
				},
			},
		},
	}
	return pageState{Settings: settings.Initialize(doc), Banner: "ready"}
}

func TestGetReturnsInitialRoot(t *testing.T) {
	store := New(map[string]any{"count": 1})
	root := store.Get()
	if root["count"] != 1 {
		t.Fatalf("root = %v", root)
	}
	if store.SnapshotID() != "" {
		t.Fatalf("no snapshot before the first commit")
	}
}

func TestSetStateReplacesRoot(t *testing.T) {
	store := New(map[string]any{"count": 1})
	err := store.SetState(func(current map[string]any) (map[string]any, error) {
		next := map[string]any{}
		for k, v := range current {
			next[k] = v
		}
		next["count"] = 2
		return next, nil
	})
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	if store.Get()["count"] != 2 {
		t.Fatalf("root = %v", store.Get())
	}
	if store.SnapshotID() == "" {
		t.Fatalf("commit must assign a snapshot id")
	}
}

func TestSetStateErrorLeavesRootUntouched(t *testing.T) {
	store := New(map[string]any{"count": 1})
	notified := 0
	store.Subscribe(func(root map[string]any) any { return root["count"] }, func(any) { notified++ })

	wantErr := errors.New("validation failed")
	err := store.SetState(func(map[string]any) (map[string]any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
	if store.Get()["count"] != 1 {
		t.Fatalf("failed update must not change the root")
	}
	if notified != 0 {
		t.Fatalf("failed update must not notify subscribers")
	}
	if store.SnapshotID() != "" {
		t.Fatalf("failed update must not advance the snapshot")
	}
}

func TestSetFieldRoundTrip(t *testing.T) {
	store := New(map[string]any{
		"user": map[string]any{"prefs": map[string]any{"encoding": "cart"}},
	})

	if err := store.SetField("user.prefs.encoding", "zip"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	value, ok, err := store.GetField("user.prefs.encoding")
	if err != nil || !ok {
		t.Fatalf("get field: ok=%v err=%v", ok, err)
	}
	if value != "zip" {
		t.Fatalf("value = %v", value)
	}

	_, ok, err = store.GetField("user.missing.encoding")
	if err != nil || ok {
		t.Fatalf("missing intermediate must yield ok=false, got ok=%v err=%v", ok, err)
	}
}

func TestUpdateFieldReceivesCurrentValue(t *testing.T) {
	store := New(map[string]any{"count": 5})
	err := store.UpdateField("count", func(current any) any {
		return current.(int) + 1
	})
	if err != nil {
		t.Fatalf("update field: %v", err)
	}
	if got, _, _ := store.GetField("count"); got != 6 {
		t.Fatalf("count = %v", got)
	}
}

func TestUpdateFieldMalformedPath(t *testing.T) {
	store := New(map[string]any{})
	err := store.SetField("a..b", 1)
	if !errors.Is(err, fieldpath.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestCommitPreservesUntouchedSiblings(t *testing.T) {
	left := map[string]any{"a": 1}
	right := map[string]any{"b": 2}
	store := New(map[string]any{"left": left, "right": right})

	if err := store.SetField("left.a", 10); err != nil {
		t.Fatalf("set field: %v", err)
	}

	root := store.Get()
	if reflect.ValueOf(root["right"]).Pointer() != reflect.ValueOf(right).Pointer() {
		t.Fatalf("untouched sibling must keep its identity")
	}
	if reflect.ValueOf(root["left"]).Pointer() == reflect.ValueOf(left).Pointer() {
		t.Fatalf("written branch must be cloned")
	}
	if left["a"] != 1 {
		t.Fatalf("previous root must stay observable: %v", left)
	}
}

func TestSnapshotIDsAreUniquePerCommit(t *testing.T) {
	store := New(map[string]any{"count": 0})
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		if err := store.SetField("count", i); err != nil {
			t.Fatalf("set field: %v", err)
		}
		id := store.SnapshotID()
		if id == "" || seen[id] {
			t.Fatalf("snapshot id %q not unique", id)
		}
		seen[id] = true
	}
}

func TestSetFieldValueTypeMismatch(t *testing.T) {
	store := New(map[string]int{"count": 1})
	if err := store.SetField("count", "nope"); err == nil {
		t.Fatalf("incompatible value must be rejected")
	}
	if store.Get()["count"] != 1 {
		t.Fatalf("failed write must not change the root")
	}
}

func TestCommitEmitsActivityEvent(t *testing.T) {
	hook := &activity.CaptureHook{}
	store := New(submitPageState(),
		WithName("submit"),
		WithActorID("admin"),
		WithActivityHooks(activity.Hooks{hook}),
	)

	if err := store.SetField("settings.download_encoding.value", "zip"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	if len(hook.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(hook.Events))
	}
	event := hook.Events[0]
	if event.Verb != activity.VerbStateUpdate {
		t.Fatalf("verb = %q", event.Verb)
	}
	if event.ObjectID != "submit" || event.ActorID != "admin" {
		t.Fatalf("event = %+v", event)
	}
	if event.Metadata["path"] != "settings.download_encoding.value" {
		t.Fatalf("metadata = %v", event.Metadata)
	}
	if event.Metadata["snapshot_id"] != store.SnapshotID() {
		t.Fatalf("snapshot id missing from metadata: %v", event.Metadata)
	}
}

func TestFailingActivityHookKeepsCommit(t *testing.T) {
	hook := &activity.CaptureHook{Err: fmt.Errorf("sink down")}
	store := New(map[string]any{"count": 0}, WithActivityHooks(activity.Hooks{hook}))

	if err := store.SetField("count", 1); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if got, _, _ := store.GetField("count"); got != 1 {
		t.Fatalf("commit must survive a failing hook, got %v", got)
	}
}

func TestStoreOverTypedSettingsTree(t *testing.T) {
	store := New(submitPageState(), WithName("submit"))
	before := store.Get()

	if err := store.SetField("settings.download_encoding.value", "zip"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	after := store.Get()
	if after.Settings.DownloadEncoding.Value != "zip" {
		t.Fatalf("typed field not written: %+v", after.Settings.DownloadEncoding)
	}
	if !settings.DiffersFromPrev(after.Settings) {
		t.Fatalf("edit must register as divergence from prev")
	}
	if before.Settings.DownloadEncoding.Value != "cart" {
		t.Fatalf("previous root mutated: %+v", before.Settings.DownloadEncoding)
	}

	err := store.SetState(func(current pageState) (pageState, error) {
		current.Settings = settings.CommitPrev(current.Settings)
		return current, nil
	})
	if err != nil {
		t.Fatalf("commit prev: %v", err)
	}
	if settings.DiffersFromPrev(store.Get().Settings) {
		t.Fatalf("commit must clear divergence")
	}
}
