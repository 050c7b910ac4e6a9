package inspect

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pkgfoundry/wheelscan/pkg/describe"
	"github.com/pkgfoundry/wheelscan/pkg/filename"
	"github.com/pkgfoundry/wheelscan/pkg/metadata"
	"github.com/pkgfoundry/wheelscan/pkg/record"
	"github.com/pkgfoundry/wheelscan/pkg/wheel"
)

// moduleExtRegexp matches the file extensions an importable Python
// module may carry: plain .py, compiled .pyd or .so, and tagged forms
// like .cpython-311-x86_64-linux-gnu.so.
var moduleExtRegexp = regexp.MustCompile(`\.(?:py|pyd|so|[-A-Za-z0-9_]+\.(?:pyd|so))$`)

// pythonKeywords are the reserved words of Python 3. A path segment
// equal to one cannot be imported, so it never names a module.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,
}

func emptyDerived() Derived {
	return Derived{
		Keywords:     []string{},
		Dependencies: []string{},
		Modules:      []string{},
	}
}

// deriveFacts computes the derived section from whatever parsed. Either
// argument may be nil; facts that depend on it stay at their empty
// values.
func deriveFacts(md *metadata.Metadata, rec *record.Record) Derived {
	d := emptyDerived()
	if md != nil {
		text, inBody, inHeaders := md.Description()
		d.DescriptionInBody = inBody
		d.DescriptionInHeaders = inHeaders
		contentType, _ := md.DescriptionContentType()
		d.ReadmeRenders = describe.Renders(text, contentType)
		if raw, ok := md.Keywords(); ok {
			words, sep := splitKeywords(raw)
			d.Keywords = sortedSet(words)
			d.KeywordSeparator = &sep
		}
		d.Dependencies = dependencyProjects(md.RequiresDist())
	}
	if rec != nil {
		d.Modules = extractModules(rec)
	}
	return d
}

// splitKeywords splits a Keywords value on commas when it contains any,
// otherwise on whitespace, and reports which separator applied. Parts
// are trimmed and empty parts dropped.
func splitKeywords(value string) ([]string, string) {
	if strings.Contains(value, ",") {
		var words []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				words = append(words, part)
			}
		}
		return words, ","
	}
	return strings.Fields(value), " "
}

// dependencyProjects returns the canonical names of the projects the
// requirements refer to, deduplicated and sorted.
func dependencyProjects(reqs []metadata.Requirement) []string {
	names := make([]string, 0, len(reqs))
	for _, req := range reqs {
		names = append(names, filename.CanonicalName(req.Name))
	}
	return sortedSet(names)
}

// extractModules lists the importable Python modules the manifest
// names. Files under <project>.data/purelib and platlib count as if
// they sat at the package root; everything else under a special
// directory drops out because some segment is not a Python identifier.
func extractModules(rec *record.Record) []string {
	var modules []string
	for _, row := range rec.Rows() {
		if mod, ok := moduleFromPath(row.Path); ok {
			modules = append(modules, mod)
		}
	}
	return sortedSet(modules)
}

func moduleFromPath(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) > 2 && wheel.IsDataDir(parts[0]) &&
		(parts[1] == "purelib" || parts[1] == "platlib") {
		parts = parts[2:]
	}
	last := parts[len(parts)-1]
	loc := moduleExtRegexp.FindStringIndex(last)
	if loc == nil || loc[0] == 0 {
		return "", false
	}
	parts[len(parts)-1] = last[:loc[0]]
	for _, part := range parts {
		if !isPythonIdentifier(part) || pythonKeywords[part] {
			return "", false
		}
	}
	if len(parts) > 1 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "."), true
}

// isPythonIdentifier approximates str.isidentifier: a leading letter or
// underscore followed by letters, digits, or underscores.
func isPythonIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// sortedSet deduplicates and sorts. The result is never nil.
func sortedSet(values []string) []string {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
