// SPDX-License-Identifier: Apache-2.0

// Package policy renders the effective configuration consumed by the
// execution path: one base document plus an ordered list of overlays.
package policy

import (
	"fmt"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/format"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/overlay"
)

// Render merges overlays onto base in order and returns the effective
// configuration. The result is recomputed on every call; nothing is cached.
func Render(base overlay.Document, overlays ...overlay.Document) (overlay.Document, error) {
	return overlay.Merge(base, overlays...)
}

// RenderFiles loads the base document and each overlay file (YAML or JSON)
// and renders the effective configuration.
func RenderFiles(basePath string, overlayPaths ...string) (overlay.Document, error) {
	var base overlay.Document
	if err := format.ParseFile(basePath, &base); err != nil {
		return nil, fmt.Errorf("error loading base policy %s: %w", basePath, err)
	}

	overlays := make([]overlay.Document, 0, len(overlayPaths))
	for _, p := range overlayPaths {
		var ov overlay.Document
		if err := format.ParseFile(p, &ov); err != nil {
			return nil, fmt.Errorf("error loading overlay %s: %w", p, err)
		}
		overlays = append(overlays, ov)
	}

	return Render(base, overlays...)
}
