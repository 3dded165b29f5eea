package usersink

import (
	"context"
	"errors"
	"testing"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/CybercentreCanada/assemblyline-ui-state/pkg/activity"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestNotifyMapsEventToRecord(t *testing.T) {
	sink := &recordingSink{}
	hook := Hook{Sink: sink}
	actor := uuid.New()

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbSettingsSaved,
		ActorID:    actor.String(),
		ObjectType: "user_settings",
		ObjectID:   "default",
		Channel:    "settings",
		Metadata:   map[string]any{"snapshot_id": "snap-1"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("records = %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actor || record.Verb != activity.VerbSettingsSaved {
		t.Fatalf("record = %+v", record)
	}
	if record.Data["snapshot_id"] != "snap-1" {
		t.Fatalf("data = %v", record.Data)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("record must carry a timestamp")
	}
}

func TestNotifyUnparseableActorFallsBackToNil(t *testing.T) {
	sink := &recordingSink{}
	hook := Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbStateUpdate,
		ActorID:    "admin",
		ObjectType: "form",
		ObjectID:   "submit",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("non-uuid actor must map to uuid.Nil")
	}
}

func TestNotifySkipsIncompleteAndNilSink(t *testing.T) {
	if err := (Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("nil sink must be a no-op: %v", err)
	}
	sink := &recordingSink{}
	if err := (Hook{Sink: sink}).Notify(context.Background(), activity.Event{Verb: "x"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("incomplete event must be dropped")
	}
}

func TestNotifyPropagatesSinkError(t *testing.T) {
	wantErr := errors.New("sink down")
	hook := Hook{Sink: &recordingSink{err: wantErr}}
	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbStateUpdate,
		ObjectType: "form",
		ObjectID:   "submit",
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
