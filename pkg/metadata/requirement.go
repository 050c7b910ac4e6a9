package metadata

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// Requirement is one Requires-Dist dependency declaration. Exactly one
// of URL and Specifier is populated for pinned requirements; both stay
// empty for a bare project name.
type Requirement struct {
	Name      string
	URL       *string
	Extras    []string
	Specifier string
	Marker    *string
}

// requirementRegexp covers the dependency grammar as it appears in
// wheel metadata: a project name, optional extras in brackets, then
// either a direct URL reference or a version specifier (bare or
// parenthesized), then an optional environment marker after ";".
var requirementRegexp = regexp.MustCompile(
	`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)` +
		`\s*(?:\[([^\]]*)\])?` +
		`\s*(?:` +
		`@\s*(\S+)` +
		`|\(([^)]*)\)` +
		`|([<>=!~][^;,]*(?:\s*,\s*[<>=!~][^;,]*)*)` +
		`)?` +
		`\s*(?:;\s*(.+?)\s*)?$`)

// ParseRequirement parses a single Requires-Dist value.
func ParseRequirement(s string) (Requirement, error) {
	m := requirementRegexp.FindStringSubmatch(s)
	if m == nil {
		return Requirement{}, errors.New(errors.ErrCodeInvalidInput, "invalid requirement: %q", s)
	}
	req := Requirement{
		Name:   m[1],
		Extras: splitExtras(m[2]),
	}
	if m[3] != "" {
		url := m[3]
		req.URL = &url
	}
	spec := m[4]
	if spec == "" {
		spec = m[5]
	}
	req.Specifier = normalizeSpecifier(spec)
	if m[6] != "" {
		marker := m[6]
		req.Marker = &marker
	}
	return req, nil
}

// String renders the requirement back into dependency syntax.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.URL != nil {
		b.WriteString(" @ " + *r.URL)
	} else if r.Specifier != "" {
		b.WriteString(r.Specifier)
	}
	if r.Marker != nil {
		b.WriteString("; " + *r.Marker)
	}
	return b.String()
}

func (r Requirement) asReport() map[string]any {
	extras := r.Extras
	if extras == nil {
		extras = []string{}
	}
	return map[string]any{
		"name":      r.Name,
		"url":       anyString(r.URL),
		"extras":    extras,
		"specifier": r.Specifier,
		"marker":    anyString(r.Marker),
	}
}

func splitExtras(s string) []string {
	var extras []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			extras = append(extras, e)
		}
	}
	sort.Strings(extras)
	return extras
}

// normalizeSpecifier strips whitespace from each clause and sorts the
// clauses, so ">= 2.0, <3" and "<3,>=2.0" compare equal.
func normalizeSpecifier(spec string) string {
	if strings.TrimSpace(spec) == "" {
		return ""
	}
	parts := make([]string, 0, 2)
	for _, p := range strings.Split(spec, ",") {
		if p = strings.Join(strings.Fields(p), ""); p != "" {
			parts = append(parts, p)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
