package activity

import (
	"strings"
	"time"
)

// SettingsEventInput describes the common fields for settings lifecycle events.
type SettingsEventInput struct {
	ActorID    string
	UserID     string
	Profile    string
	Path       string
	SnapshotID string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildSettingsLoadedEvent constructs an event for a settings document load or
// profile switch.
func BuildSettingsLoadedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbSettingsLoaded, input)
}

// BuildSettingsSavedEvent constructs an event for a successful settings save.
func BuildSettingsSavedEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbSettingsSaved, input)
}

// BuildSettingsResetEvent constructs an event for a reset-to-saved or
// reset-to-default action.
func BuildSettingsResetEvent(input SettingsEventInput) Event {
	return buildSettingsEvent(VerbSettingsReset, input)
}

func buildSettingsEvent(verb string, input SettingsEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Profile != "" {
		metadata = ensureMetadata(metadata)
		metadata["profile"] = input.Profile
	}
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	objectID := strings.TrimSpace(input.Profile)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = "settings"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		ObjectType: "user_settings",
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
