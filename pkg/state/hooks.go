package state

import (
	"github.com/CybercentreCanada/assemblyline-ui-state/internal/hydrate"
	"github.com/CybercentreCanada/assemblyline-ui-state/settings"
)

// WithLegacyEncodingHook patches payloads written before the "encoding" key
// was renamed to "download_encoding". An existing download_encoding value
// always wins.
func WithLegacyEncodingHook() hydrate.DecoderOption[settings.Document] {
	return hydrate.WithPreHook[settings.Document](func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
		if legacy, ok := payload["encoding"]; ok {
			if _, exists := payload["download_encoding"]; !exists {
				payload["download_encoding"] = legacy
			}
			delete(payload, "encoding")
		}
		return payload, nil
	})
}
