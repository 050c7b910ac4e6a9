// Package metadata parses the RFC 822 style files found in a wheel's
// dist-info directory: METADATA, WHEEL, entry_points.txt and the plain
// line-list files.
package metadata

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// scalarFields are core headers carried verbatim into the report.
var scalarFields = map[string]bool{
	"metadata_version": true,
	"name":             true,
	"version":          true,
	"requires_python":  true,
}

// nullableFields are headers whose blank or UNKNOWN values read as null.
var nullableFields = map[string]bool{
	"summary":                  true,
	"author":                   true,
	"author_email":             true,
	"description":              true,
	"download_url":             true,
	"home_page":                true,
	"license":                  true,
	"maintainer":               true,
	"maintainer_email":         true,
	"keywords":                 true,
	"description_content_type": true,
}

// listFields are headers that may repeat and collect into string lists.
var listFields = map[string]bool{
	"classifier":         true,
	"obsoletes":          true,
	"obsoletes_dist":     true,
	"platform":           true,
	"provides":           true,
	"provides_dist":      true,
	"provides_extra":     true,
	"requires":           true,
	"requires_external":  true,
	"supported_platform": true,
}

type header struct {
	name  string // normalized
	value string
}

/// Metadata is a parsed METADATA file: the header block plus the
// optional message body holding the long description.
type Metadata struct {
	headers  []header
	body     *string
	requires []Requirement
}

// Parse reads a METADATA file. Repeated single-valued headers and
// unparseable Requires-Dist values are INVALID_INPUT errors; anything
// else, including headers this package has never heard of, parses.
func Parse(r io.Reader) (*Metadata, error) {
	headers, body, err := scanHeaders(r)
	if err != nil {
		return nil, err
	}
	m := &Metadata{headers: headers, body: body}
	seen := make(map[string]bool)
	for _, h := range headers {
		switch {
		case scalarFields[h.name] || nullableFields[h.name]:
			if seen[h.name] {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"metadata field %s occurs more than once", h.name)
			}
			seen[h.name] = true
		case h.name == "requires_dist":
			req, err := ParseRequirement(h.value)
			if err != nil {
				return nil, err
			}
			m.requires = append(m.requires, req)
		}
	}
	return m, nil
}

// Get returns the raw value of the named header. Header names compare
// after normalization, so "Home-page" and "home_page" are the same
// field. Repeated headers return the first occurrence.
func (m *Metadata) Get(name string) (string, bool) {
	name = normalize(name)
	for _, h := range m.headers {
		if h.name == name {
			return h.value, true
		}
	}
	return "", false
}

// Values returns every occurrence of the named header in file order.
func (m *Metadata) Values(name string) []string {
	name = normalize(name)
	var vals []string
	for _, h := range m.headers {
		if h.name == name {
			vals = append(vals, h.value)
		}
	}
	return vals
}

// Body returns the message body, when the file has one.
func (m *Metadata) Body() (string, bool) {
	if m.body == nil {
		return "", false
	}
	return *m.body, true
}

// RequiresDist returns the parsed Requires-Dist requirements in file
// order.
func (m *Metadata) RequiresDist() []Requirement {
	return m.requires
}

// Keywords returns the Keywords header. The bool is false when the
// header is absent, blank or UNKNOWN.
func (m *Metadata) Keywords() (string, bool) {
	raw, ok := m.Get("Keywords")
	if !ok {
		return "", false
	}
	if v := strfield(raw); v != nil {
		return *v, true
	}
	return "", false
}

// DescriptionContentType returns the Description-Content-Type header.
// The bool is false when the header is absent, blank or UNKNOWN.
func (m *Metadata) DescriptionContentType() (string, bool) {
	raw, ok := m.Get("Description-Content-Type")
	if !ok {
		return "", false
	}
	if v := strfield(raw); v != nil {
		return *v, true
	}
	return "", false
}

// Description returns the effective long description together with
// where it was found. A Description header takes precedence over the
// body even when its value reads as null. text is empty when the
// effective description is null or absent.
func (m *Metadata) Description() (text string, inBody, inHeaders bool) {
	inBody = m.body != nil
	raw, inHeaders := m.Get("Description")
	if inHeaders {
		if v := strfield(raw); v != nil {
			text = *v
		}
		return text, inBody, inHeaders
	}
	if m.body != nil {
		if v := strfield(*m.body); v != nil {
			text = *v
		}
	}
	return text, inBody, inHeaders
}

// AsReport renders the metadata as the report's metadata object. Known
// fields keep their documented types, unknown headers become string
// lists, and the description collapses to its length.
func (m *Metadata) AsReport() map[string]any {
	report := make(map[string]any)
	for _, h := range m.headers {
		switch {
		case h.name == "description":
			// Handled below together with the body.
		case scalarFields[h.name]:
			report[h.name] = h.value
		case nullableFields[h.name]:
			report[h.name] = anyString(strfield(h.value))
		case h.name == "requires_dist":
			// Parsed up front; appended once after the loop.
		case h.name == "project_url":
			arr, _ := report[h.name].([]any)
			report[h.name] = append(arr, projectURL(h.value))
		default:
			// Covers both the known list fields and anything unknown.
			arr, _ := report[h.name].([]string)
			if arr == nil {
				arr = []string{}
			}
			if v := strfield(h.value); v != nil {
				arr = append(arr, *v)
			}
			report[h.name] = arr
		}
	}
	if len(m.requires) > 0 {
		arr := make([]any, 0, len(m.requires))
		for _, req := range m.requires {
			arr = append(arr, req.asReport())
		}
		report["requires_dist"] = arr
	}
	if desc, present := m.effectiveDescription(); present {
		report["description"] = desc
	}
	return report
}

// effectiveDescription resolves the Description header against the
// body. The second return is false when neither is present.
func (m *Metadata) effectiveDescription() (any, bool) {
	if raw, ok := m.Get("Description"); ok {
		return descriptionLength(strfield(raw)), true
	}
	if m.body != nil {
		return descriptionLength(strfield(*m.body)), true
	}
	return nil, false
}

func descriptionLength(v *string) any {
	if v == nil {
		return nil
	}
	return map[string]any{"length": utf8.RuneCountInString(*v)}
}

// projectURL splits a Project-URL value on its first comma into a
// label and URL. Without a comma the whole value is the URL.
func projectURL(s string) map[string]any {
	label, url, found := strings.Cut(s, ",")
	if !found {
		return map[string]any{"label": nil, "url": s}
	}
	return map[string]any{
		"label": strings.TrimSpace(label),
		"url":   strings.TrimSpace(url),
	}
}

// strfield reads blank and UNKNOWN values as null.
func strfield(s string) *string {
	if t := strings.TrimSpace(s); t == "" || t == "UNKNOWN" {
		return nil
	}
	return &s
}

func anyString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// normalize lowercases a header name and folds hyphens to underscores.
func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

// scanHeaders splits an RFC 822 style message into its header block
// and body. Continuation lines keep their leading whitespace and join
// with newlines. The body pointer is nil when the message has no blank
// separator line at all.
func scanHeaders(r io.Reader) ([]header, *string, error) {
	br := bufio.NewReader(r)
	var headers []header
	current := -1
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			text := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			switch {
			case text == "":
				rest, rerr := io.ReadAll(br)
				if rerr != nil {
					return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, rerr, "failed to read message body")
				}
				body := normalizeNewlines(string(rest))
				return headers, &body, nil
			case text[0] == ' ' || text[0] == '\t':
				if current < 0 {
					return nil, nil, errors.New(errors.ErrCodeInvalidInput,
						"continuation line before any header field")
				}
				headers[current].value += "\n" + text
			default:
				name, rest, found := strings.Cut(text, ":")
				if !found || strings.TrimSpace(name) == "" {
					return nil, nil, errors.New(errors.ErrCodeInvalidInput,
						"malformed header line: %q", text)
				}
				headers = append(headers, header{
					name:  normalize(strings.TrimRight(name, " \t")),
					value: strings.TrimLeft(rest, " \t"),
				})
				current = len(headers) - 1
			}
		}
		if err == io.EOF {
			return headers, nil, nil
		}
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read header block")
		}
	}
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
