package pdf

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// relaxedConf returns a pdfcpu configuration that tolerates the minor spec
// violations real-world payroll exports tend to carry.
func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// SafeFilename reduces an employee display name to a filesystem-safe stem:
// only letters, digits, hyphens and underscores survive, spaces become
// underscores ("JEAN DUPONT" → "JEAN_DUPONT").
func SafeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// OutputFilename builds the deterministic per-employee output name,
// e.g. "JEAN_DUPONT_2025_08.pdf". period must already be resolved — the
// current-month fallback is the caller's decision.
func OutputFilename(name, period string) string {
	return SafeFilename(name) + "_" + period + ".pdf"
}

// WriteSubset writes a new PDF into outDir containing exactly the given
// zero-based pages of srcPath, in the given order, and returns the output
// path. If the destination already exists it is silently overwritten
// (timestamped run directories make names unique per run).
func WriteSubset(srcPath, outDir, filename string, pages []int) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages selected for %s", filename)
	}

	// pdfcpu page selections are 1-based
	selected := make([]string, len(pages))
	for i, p := range pages {
		selected[i] = strconv.Itoa(p + 1)
	}

	outPath := filepath.Join(outDir, filename)
	if err := api.CollectFile(srcPath, outPath, selected, relaxedConf()); err != nil {
		return "", fmt.Errorf("failed to write page subset: %w", err)
	}
	return outPath, nil
}
