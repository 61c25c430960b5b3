package payslip

// Group is one employee's slice of a source document: the pages that belong
// to them plus the header fields carried over from those pages.
type Group struct {
	Name      string
	Pages     []int  // zero-based source page indices, ascending
	Matricule string // "" when no page of the group carried one
	Period    string // "" when no page of the group carried one
}

// adopt backfills header fields from one more page of the same employee.
// The policy is first-seen-wins: once a matricule or period is known for a
// group, later pages never override it, even if they differ. The first page
// of a payslip carries the authoritative header; continuation pages may
// repeat it partially or not at all.
func (g *Group) adopt(f PageFields) {
	if g.Matricule == "" && f.Matricule != "" {
		g.Matricule = f.Matricule
	}
	if g.Period == "" && f.Period != "" {
		g.Period = f.Period
	}
}

// Segment runs the page extractor over every page text and groups page
// indices by detected employee name. Pages yielding no name are silently
// skipped. Groups come back in first-page-seen order.
//
// Grouping is keyed on the display name, with the matricule as the
// authoritative secondary key for directory matching. Two distinct employees
// sharing an identical extracted name would merge into one group — a known
// limitation of name-keyed grouping, kept as observed behavior.
func Segment(pageTexts []string) []*Group {
	byName := make(map[string]*Group)
	var ordered []*Group

	for idx, text := range pageTexts {
		fields := ExtractPage(text)
		if fields.Name == "" {
			continue
		}

		g, ok := byName[fields.Name]
		if !ok {
			g = &Group{Name: fields.Name}
			byName[fields.Name] = g
			ordered = append(ordered, g)
		}
		g.adopt(fields)
		g.Pages = append(g.Pages, idx)
	}

	return ordered
}
