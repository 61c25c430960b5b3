// Package payslip implements the text heuristics that identify which employee
// a payslip page belongs to, and the grouping of pages into per-employee
// sub-documents.
//
// Extraction is heuristic and tuned to one payslip layout family: pages carry
// a "Catégorie" line with the employee's honorific and name, a "Matricule"
// line with the employee number, and a "Période du .. au .." line with the
// pay period. A page that matches none of these simply yields empty fields —
// extraction never fails, it degrades.
package payslip

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PageFields holds whatever could be read from a single page's text.
// Each field is independently optional; the empty string means "not found".
type PageFields struct {
	Name      string
	Matricule string
	Period    string // normalized YYYY_MM
}

// minNameLen: anything this short after the honorific is layout noise,
// not a name.
const minNameLen = 6

var (
	matriculeInlineRe = regexp.MustCompile(`Matricule\s+(\d+)`)
	matriculeNextRe   = regexp.MustCompile(`^(\d{4})(\s|$)`)
)

// periodPattern pairs a regex with the capture-group layout it produces.
type periodPattern struct {
	re      *regexp.Regexp
	monthAt int
	yearAt  int
}

// Prioritized period patterns. The explicit "Période du" forms win over the
// generic date fallback so a stray date elsewhere on the page cannot shadow
// the header.
var periodPatterns = []periodPattern{
	// "Période du 01/08/25 au 31/08/25"
	{re: regexp.MustCompile(`Période du \d{2}/(\d{2})/(\d{2}) au`), monthAt: 1, yearAt: 2},
	// "Période du 01/08/2025 au 31/08/2025"
	{re: regexp.MustCompile(`Période du \d{2}/(\d{2})/(\d{4}) au`), monthAt: 1, yearAt: 2},
	// "du 01/08/25 au 31/08/25"
	{re: regexp.MustCompile(`du \d{2}/(\d{2})/(\d{2}) au`), monthAt: 1, yearAt: 2},
	// "Mois: 08/2025" or "Mois : 08/2025"
	{re: regexp.MustCompile(`Mois\s*:\s*(\d{2})/(\d{4})`), monthAt: 1, yearAt: 2},
	// Generic date fallback: "31/08/25" or "01/08/2025"
	{re: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2,4})`), monthAt: 2, yearAt: 3},
}

// ExtractPage runs all three field extractors over one page's plain text.
func ExtractPage(pageText string) PageFields {
	return PageFields{
		Name:      ExtractName(pageText),
		Matricule: ExtractMatricule(pageText),
		Period:    ExtractPeriod(pageText),
	}
}

// ExtractName finds the employee display name on a page.
//
// The anchor is a line containing "Catégorie". If a title token ("M " or
// "Mme ") appears inline after the anchor, the substring following it is the
// name, provided it exceeds the minimum length. Otherwise the next line is
// tried, accepted only if non-empty, fully upper-case and long enough.
func ExtractName(pageText string) string {
	lines := strings.Split(pageText, "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "Catégorie") {
			continue
		}

		if _, after, ok := strings.Cut(line, " M "); ok {
			name := strings.TrimSpace(after)
			if utf8.RuneCountInString(name) >= minNameLen {
				return name
			}
		} else if _, after, ok := strings.Cut(line, " Mme "); ok {
			name := strings.TrimSpace(after)
			if utf8.RuneCountInString(name) >= minNameLen {
				return name
			}
		}

		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if utf8.RuneCountInString(next) >= minNameLen && isUpperCase(next) {
				return next
			}
		}
	}
	return ""
}

// ExtractMatricule finds the employee number on a page: either an inline
// numeric token after the "Matricule" label, or a leading 4-digit token at
// the start of the following line.
func ExtractMatricule(pageText string) string {
	lines := strings.Split(pageText, "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "Matricule") {
			continue
		}

		// "Matricule 2204      Ancienneté 2an(s) et 8mois"
		if m := matriculeInlineRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}

		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if m := matriculeNextRe.FindStringSubmatch(next); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// ExtractPeriod finds the pay period on a page and normalizes it to YYYY_MM.
// Returns "" when no pattern matches anywhere — the caller decides the
// fallback (the current processing month), so a page with no period keeps a
// NULL extracted period in the audit trail.
func ExtractPeriod(pageText string) string {
	for _, raw := range strings.Split(pageText, "\n") {
		line := strings.TrimSpace(raw)
		for _, p := range periodPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			month := zeroPad(m[p.monthAt])
			year := m[p.yearAt]
			if len(year) == 2 {
				year = expandYear(year)
			}
			return year + "_" + month
		}
	}
	return ""
}

// expandYear widens a two-digit year using a pivot: values below 50 belong
// to 20xx, the rest to 19xx ("49" → "2049", "50" → "1950").
func expandYear(yy string) string {
	if yy < "50" {
		return "20" + yy
	}
	return "19" + yy
}

func zeroPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// isUpperCase reports whether s contains at least one letter and no
// lower-case letters — the shape of a printed surname line.
func isUpperCase(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
