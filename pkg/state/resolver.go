package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CybercentreCanada/assemblyline-ui-state/internal/hydrate"
	"github.com/CybercentreCanada/assemblyline-ui-state/settings"
)

// Resolver turns persisted payloads into ready-to-edit settings: it loads the
// raw document, hydrates it, initializes the three-way slots and applies the
// user's preferred submission profile in one step.
type Resolver struct {
	Store Store

	// Definitions maps profile names to their server-side definitions.
	// "default" needs no definition; it lives on the document itself.
	Definitions map[string]*settings.ProfileDefinition

	// Decoder overrides the default hydration pipeline, e.g. to patch
	// legacy payload shapes with pre-hooks.
	Decoder *hydrate.Decoder[settings.Document]
}

// Resolved is the outcome of loading one user's settings.
type Resolved struct {
	Document *settings.Document
	Settings *settings.ProfileSettings
	Profile  string
	Meta     Meta
}

// Resolve loads, hydrates and initializes the settings for a user, applying
// the document's preferred submission profile. A missing record resolves to
// an empty document so first-time users start from a blank page.
func (r Resolver) Resolve(ctx context.Context, ref Ref, privileged bool) (*Resolved, error) {
	doc, meta, err := r.loadDocument(ctx, ref)
	if err != nil {
		return nil, err
	}

	profile := doc.PreferredSubmissionProfile
	if profile == "" {
		profile = "default"
	}
	return r.resolveProfile(doc, meta, profile, privileged)
}

// ResolveProfile behaves like Resolve but applies an explicit profile instead
// of the document's preferred one.
func (r Resolver) ResolveProfile(ctx context.Context, ref Ref, profile string, privileged bool) (*Resolved, error) {
	doc, meta, err := r.loadDocument(ctx, ref)
	if err != nil {
		return nil, err
	}
	return r.resolveProfile(doc, meta, profile, privileged)
}

func (r Resolver) resolveProfile(doc *settings.Document, meta Meta, profile string, privileged bool) (*Resolved, error) {
	canonical := settings.CanonicalProfileName(profile)
	ps := settings.Initialize(doc)

	if canonical == "default" {
		ps = settings.LoadDefaultProfile(ps, doc, privileged)
	} else {
		def, ok := r.Definitions[canonical]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, canonical)
		}
		ps = settings.LoadProfile(ps, doc, def, privileged, canonical)
	}

	return &Resolved{
		Document: doc,
		Settings: ps,
		Profile:  canonical,
		Meta:     meta,
	}, nil
}

// Save flattens the settings under the given profile and persists the result.
// When expect carries an ETag it must match the stored one, otherwise the
// save fails with ErrETagMismatch and the caller should reload. Every save
// mints a fresh snapshot ID and ETag.
func (r Resolver) Save(ctx context.Context, ref Ref, ps *settings.ProfileSettings, profile string, expect Meta) (*settings.Document, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}

	doc, loadedMeta, err := r.loadDocument(ctx, ref)
	if err != nil {
		return nil, Meta{}, err
	}
	if expect.ETag != "" && loadedMeta.ETag != "" && expect.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expect.ETag, loadedMeta.ETag)
	}

	flat := settings.Flatten(doc, ps, profile)
	payload, err := documentPayload(flat)
	if err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, expect)
	saveMeta.SnapshotID = uuid.NewString()
	saveMeta.ETag = uuid.NewString()
	saveMeta.UpdatedAt = time.Now()

	savedMeta, err := r.Store.Save(ctx, ref, payload, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save settings for %q: %w", ref.User, err)
	}
	return flat, savedMeta, nil
}

func (r Resolver) loadDocument(ctx context.Context, ref Ref) (*settings.Document, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}

	payload, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load settings for %q: %w", ref.User, err)
	}
	if !ok {
		return &settings.Document{}, Meta{}, nil
	}

	doc, err := r.decoder().Decode(hydrate.Context{User: ref.User}, payload)
	if err != nil {
		return nil, Meta{}, err
	}
	return &doc, meta, nil
}

func (r Resolver) decoder() *hydrate.Decoder[settings.Document] {
	if r.Decoder != nil {
		return r.Decoder
	}
	return hydrate.NewDecoder[settings.Document]()
}

func documentPayload(doc *settings.Document) (map[string]any, error) {
	buffer, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("state: marshal document: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(buffer, &payload); err != nil {
		return nil, fmt.Errorf("state: decode document payload: %w", err)
	}
	return payload, nil
}
