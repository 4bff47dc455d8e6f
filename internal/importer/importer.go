// Package importer turns legacy blog exports into intermediate records.
// Two source formats are supported: an XML blog export and a directory of
// static HTML export files. Importers own all format-specific parsing; the
// collator and synchronizer never see source material.
package importer

import (
	"context"
	"strings"

	"github.com/blog-cms-migrator/internal/models"
)

// Importer produces intermediate records from one source.
type Importer interface {
	Import(ctx context.Context) ([]models.IntermediateRecord, error)
}

// redirectHTTPCode is the status legacy URLs redirect with.
const redirectHTTPCode = 301

// Slugify normalizes a title or tag name into a slug: lower-case,
// [a-z0-9-] only, hyphen-separated, no leading or trailing hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}
