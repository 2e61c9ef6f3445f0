// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Formats lists the encodings accepted by Encode.
var Formats = []string{"yaml", "json"}

// Encode writes v to w as YAML or indented JSON.
func Encode(w io.Writer, v any, format string) error {
	switch format {
	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

// Export writes the full snapshots of the matching sessions to w, most
// recent first.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, opts ListOptions) error {
	summaries, err := s.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	snaps := make([]types.SessionSnapshot, 0, len(summaries))
	for _, sum := range summaries {
		snap, err := s.Get(ctx, sum.ID)
		if err != nil {
			return err
		}
		snaps = append(snaps, snap)
	}
	return Encode(w, snaps, format)
}
