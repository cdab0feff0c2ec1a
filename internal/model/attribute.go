package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// SourcedAttribute is one datasource's claim about a named attribute value.
// Immutable once captured.
type SourcedAttribute struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Datasource string `json:"datasource"`
}

// ProductAttribute holds every sourced claim for one attribute name along
// with the currently elected value.
type ProductAttribute struct {
	Name    string             `json:"name"`
	Value   string             `json:"value,omitempty"`
	Sources []SourcedAttribute `json:"sources,omitempty"`
}

// NewProductAttribute creates an empty attribute for the given name.
func NewProductAttribute(name string) *ProductAttribute {
	return &ProductAttribute{Name: name}
}

// AddSource records one datasource claim. A claim whose name differs from
// the attribute's name is a caller bug and is reported as an error rather
// than silently accepted.
func (a *ProductAttribute) AddSource(sa SourcedAttribute) error {
	if sa.Name != a.Name {
		return eris.Errorf("attribute: sourced attribute %q does not belong to attribute %q", sa.Name, a.Name)
	}
	a.Sources = append(a.Sources, sa)
	return nil
}

// SourcesCount returns the number of recorded claims.
func (a *ProductAttribute) SourcesCount() int {
	return len(a.Sources)
}

// DistinctValues returns the number of normalized value groups among the
// recorded claims.
func (a *ProductAttribute) DistinctValues() int {
	seen := make(map[string]struct{}, len(a.Sources))
	for _, sa := range a.Sources {
		if strings.TrimSpace(sa.Value) == "" {
			continue
		}
		seen[normalizeAttributeValue(sa.Value)] = struct{}{}
	}
	return len(seen)
}

// HasConflicts reports whether sources disagree on the value.
func (a *ProductAttribute) HasConflicts() bool {
	return a.DistinctValues() > 1
}

// valueGroup aggregates equivalent claims under one normalized key. The
// representative display value is the first literal seen for the group.
type valueGroup struct {
	display     string
	datasources map[string]struct{}
}

// Resolve elects one authoritative value from the recorded claims:
//  1. claims are grouped by normalized value (whitespace collapsed,
//     case-folded); each group keeps the first-seen literal as its
//     representative;
//  2. if the ordered trusted list is non-empty, the first trusted
//     datasource present among the claims wins outright;
//  3. otherwise the group voted for by the most distinct datasources wins;
//  4. remaining ties break on ascending byte order of the representative.
//
// Resolve is a pure function of the claims and the trusted list; it holds
// no hidden state and may be re-evaluated after every AddSource.
func (a *ProductAttribute) Resolve(trusted []string) string {
	groups := make(map[string]*valueGroup)

	for _, sa := range a.Sources {
		literal := collapseSpace(sa.Value)
		if literal == "" {
			continue
		}
		key := normalizeAttributeValue(sa.Value)
		g, ok := groups[key]
		if !ok {
			g = &valueGroup{
				display:     literal,
				datasources: make(map[string]struct{}),
			}
			groups[key] = g
		}
		g.datasources[sa.Datasource] = struct{}{}
	}

	if len(groups) == 0 {
		return ""
	}

	// A trusted datasource wins regardless of vote counts.
	for _, trustedName := range trusted {
		for _, sa := range a.Sources {
			if strings.EqualFold(sa.Datasource, trustedName) && collapseSpace(sa.Value) != "" {
				return groups[normalizeAttributeValue(sa.Value)].display
			}
		}
	}

	var best *valueGroup
	for _, g := range groups {
		if best == nil {
			best = g
			continue
		}
		if len(g.datasources) > len(best.datasources) {
			best = g
			continue
		}
		if len(g.datasources) == len(best.datasources) && g.display < best.display {
			best = g
		}
	}
	return best.display
}

// NumericValue parses the elected value as a float, tolerating a comma
// decimal separator.
func (a *ProductAttribute) NumericValue() (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(a.Value), ",", ".")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// BoolValue interprets the elected value as a boolean flag.
func (a *ProductAttribute) BoolValue() (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(a.Value)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

// collapseSpace trims and condenses internal whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeAttributeValue builds the grouping key: whitespace collapsed and
// Unicode case-folded, so "Noir" and "  noir " land in the same group.
func normalizeAttributeValue(s string) string {
	return cases.Fold().String(collapseSpace(s))
}
