package metadata

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

const sampleMetadata = `Metadata-Version: 2.1
Name: demo
Version: 1.0
Summary: A demonstration package
Home-page: https://example.com/demo
Author: UNKNOWN
Keywords: alpha,beta
Classifier: Programming Language :: Python :: 3
Classifier: License :: OSI Approved :: MIT License
Requires-Python: >=3.7
Requires-Dist: requests (>=2.0)
Requires-Dist: tomli ; python_version < "3.11"
Project-URL: Documentation, https://demo.readthedocs.io
X-Custom: something

This is the long description.
It has two lines.
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleMetadata))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if got, _ := m.Get("Name"); got != "demo" {
		t.Errorf("Get(Name) = %q, want demo", got)
	}
	if got, _ := m.Get("home_page"); got != "https://example.com/demo" {
		t.Errorf("Get(home_page) = %q; normalized lookup failed", got)
	}
	if got := m.Values("Classifier"); len(got) != 2 {
		t.Errorf("Values(Classifier) has %d entries, want 2", len(got))
	}

	body, ok := m.Body()
	if !ok {
		t.Fatal("Body() reported no body")
	}
	if body != "This is the long description.\nIt has two lines.\n" {
		t.Errorf("Body() = %q", body)
	}

	if kw, ok := m.Keywords(); !ok || kw != "alpha,beta" {
		t.Errorf("Keywords() = %q, %v", kw, ok)
	}
	if _, ok := m.DescriptionContentType(); ok {
		t.Error("DescriptionContentType() reported a value for an absent header")
	}

	reqs := m.RequiresDist()
	if len(reqs) != 2 {
		t.Fatalf("RequiresDist() has %d entries, want 2", len(reqs))
	}
	if reqs[0].Name != "requests" || reqs[0].Specifier != ">=2.0" {
		t.Errorf("RequiresDist()[0] = %+v", reqs[0])
	}
	if reqs[1].Marker == nil || *reqs[1].Marker != `python_version < "3.11"` {
		t.Errorf("RequiresDist()[1].Marker = %v", reqs[1].Marker)
	}
}

func TestParseContinuationLines(t *testing.T) {
	input := "Name: demo\nDescription: First line\n        continued here\nVersion: 1.0\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	got, ok := m.Get("Description")
	if !ok {
		t.Fatal("Description header missing")
	}
	want := "First line\n        continued here"
	if got != want {
		t.Errorf("Get(Description) = %q, want %q", got, want)
	}
	if _, ok := m.Get("Version"); !ok {
		t.Error("header after continuation block was lost")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"duplicate scalar", "Name: a\nName: b\n"},
		{"line without colon", "Name: a\njust some text\n"},
		{"leading continuation", "   dangling\n"},
		{"bad requirement", "Requires-Dist: ???\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Parse error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantText      string
		wantInBody    bool
		wantInHeaders bool
	}{
		{
			"body only",
			"Name: demo\n\nreadme text\n",
			"readme text\n", true, false,
		},
		{
			"header only",
			"Name: demo\nDescription: inline readme\n",
			"inline readme", false, true,
		},
		{
			"header wins over body",
			"Name: demo\nDescription: inline\n\nbody readme\n",
			"inline", true, true,
		},
		{
			"null header masks body",
			"Name: demo\nDescription: UNKNOWN\n\nbody readme\n",
			"", true, true,
		},
		{
			"blank body",
			"Name: demo\n\n",
			"", true, false,
		},
		{
			"no description at all",
			"Name: demo\n",
			"", false, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			text, inBody, inHeaders := m.Description()
			if text != tt.wantText || inBody != tt.wantInBody || inHeaders != tt.wantInHeaders {
				t.Errorf("Description() = %q, %v, %v; want %q, %v, %v",
					text, inBody, inHeaders, tt.wantText, tt.wantInBody, tt.wantInHeaders)
			}
		})
	}
}

func TestAsReport(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleMetadata))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	report := m.AsReport()

	if got := report["name"]; got != "demo" {
		t.Errorf("report name = %v", got)
	}
	if got := report["requires_python"]; got != ">=3.7" {
		t.Errorf("report requires_python = %v", got)
	}
	if got := report["author"]; got != nil {
		t.Errorf("report author = %v, want null for UNKNOWN", got)
	}
	if got := report["summary"]; got != "A demonstration package" {
		t.Errorf("report summary = %v", got)
	}

	desc, ok := report["description"].(map[string]any)
	if !ok {
		t.Fatalf("report description = %v, want length object", report["description"])
	}
	if desc["length"] != len("This is the long description.\nIt has two lines.\n") {
		t.Errorf("description length = %v", desc["length"])
	}

	classifiers, ok := report["classifier"].([]string)
	if !ok || len(classifiers) != 2 {
		t.Errorf("report classifier = %v", report["classifier"])
	}
	custom, ok := report["x_custom"].([]string)
	if !ok || !reflect.DeepEqual(custom, []string{"something"}) {
		t.Errorf("report x_custom = %v", report["x_custom"])
	}

	urls, ok := report["project_url"].([]any)
	if !ok || len(urls) != 1 {
		t.Fatalf("report project_url = %v", report["project_url"])
	}
	url := urls[0].(map[string]any)
	if url["label"] != "Documentation" || url["url"] != "https://demo.readthedocs.io" {
		t.Errorf("project_url entry = %v", url)
	}

	reqs, ok := report["requires_dist"].([]any)
	if !ok || len(reqs) != 2 {
		t.Fatalf("report requires_dist = %v", report["requires_dist"])
	}
	first := reqs[0].(map[string]any)
	want := map[string]any{
		"name":      "requests",
		"url":       nil,
		"extras":    []string{},
		"specifier": ">=2.0",
		"marker":    nil,
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("requires_dist[0] = %v, want %v", first, want)
	}
}

func TestAsReportDescriptionNull(t *testing.T) {
	m, err := Parse(strings.NewReader("Name: demo\nDescription: UNKNOWN\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	report := m.AsReport()
	v, present := report["description"]
	if !present {
		t.Fatal("description key missing")
	}
	if v != nil {
		t.Errorf("description = %v, want null", v)
	}
}

func TestProjectURLWithoutLabel(t *testing.T) {
	m, err := Parse(strings.NewReader("Name: demo\nProject-URL: https://example.com\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	urls := m.AsReport()["project_url"].([]any)
	url := urls[0].(map[string]any)
	if url["label"] != nil || url["url"] != "https://example.com" {
		t.Errorf("project_url entry = %v", url)
	}
}
