// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/deep-research/internal/archive"
	"github.com/pdiddy/deep-research/pkg/types"
)

const maxSlugRunes = 50

// extensions maps an output format to its file extension.
var extensions = map[string]string{
	"":         ".yaml",
	"yaml":     ".yaml",
	"json":     ".json",
	"markdown": ".md",
}

// writeSnapshot encodes snap to w in the given format.
func writeSnapshot(w io.Writer, snap types.SessionSnapshot, format string) error {
	if format == "markdown" {
		return renderMarkdown(w, snap)
	}
	return archive.Encode(w, snap, format)
}

// saveSnapshot writes snap under out.Dir with a name derived from the query
// and returns the path. Existing files are never overwritten.
func saveSnapshot(out types.OutputConfig, snap types.SessionSnapshot, now time.Time) (string, error) {
	ext, ok := extensions[out.Format]
	if !ok {
		return "", fmt.Errorf("unsupported output format %q", out.Format)
	}
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path, err := uniquePath(out.Dir, "research_"+slug(snap.Query), ext, now)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeSnapshot(f, snap, out.Format); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// slug lowercases s and keeps letters and digits, joining runs of anything
// else with a single underscore.
func slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := []rune(b.String())
	if len(out) > maxSlugRunes {
		out = out[:maxSlugRunes]
	}
	if str := strings.TrimRight(string(out), "_"); str != "" {
		return str
	}
	return "query"
}

// uniquePath returns the first free name among base+ext,
// base_<timestamp>+ext, and base_<timestamp>_vN+ext.
func uniquePath(dir, base, ext string, now time.Time) (string, error) {
	candidate := filepath.Join(dir, base+ext)
	free, err := missing(candidate)
	if err != nil || free {
		return candidate, err
	}

	stamped := base + "_" + now.Format("20060102_150405")
	candidate = filepath.Join(dir, stamped+ext)
	free, err = missing(candidate)
	if err != nil || free {
		return candidate, err
	}

	for v := 2; v < 1000; v++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_v%d%s", stamped, v, ext))
		free, err = missing(candidate)
		if err != nil || free {
			return candidate, err
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}

func missing(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	return false, err
}
