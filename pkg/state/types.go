// Package state is the persistence seam for settings documents. It stores
// raw payloads keyed by user, guarded by ETag-checked metadata, and resolves
// them into initialized settings through the hydration pipeline. Backends
// implement Store; everything else is backend-agnostic.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrUnknownProfile = errors.New("state: unknown submission profile")

// Ref identifies one persisted settings document.
type Ref struct {
	User string
}

// Identifier returns the deterministic storage key for the reference.
func (r Ref) Identifier() (string, error) {
	if r.User == "" {
		return "", fmt.Errorf("state: user is required")
	}
	return fmt.Sprintf("user/%s/settings", r.User), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one raw settings payload per user.
type Store interface {
	Load(ctx context.Context, ref Ref) (payload map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, payload map[string]any, meta Meta) (Meta, error)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
