package metadata

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// EntryPoint is one entry_points.txt entry: a module, an optional
// object path within it, and the extras the entry depends on.
type EntryPoint struct {
	Module string
	Attr   *string
	Extras []string
}

// ParseEntryPoints reads an entry_points.txt file into a map of group
// name to entry name to entry point. Groups may be empty; entries
// outside any group are an error.
func ParseEntryPoints(r io.Reader) (map[string]map[string]EntryPoint, error) {
	groups := make(map[string]map[string]EntryPoint)
	group := ""
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line[0] == '#' || line[0] == ';':
		case line[0] == '[':
			if !strings.HasSuffix(line, "]") {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"malformed entry point group header: %q", line)
			}
			group = strings.TrimSpace(line[1 : len(line)-1])
			if group == "" {
				return nil, errors.New(errors.ErrCodeInvalidInput, "empty entry point group name")
			}
			if groups[group] == nil {
				groups[group] = make(map[string]EntryPoint)
			}
		default:
			name, spec, found := strings.Cut(line, "=")
			if !found {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"malformed entry point line: %q", line)
			}
			if group == "" {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"entry point %q appears before any group header", strings.TrimSpace(name))
			}
			ep, err := parseEntryPoint(spec)
			if err != nil {
				return nil, err
			}
			groups[group][strings.TrimSpace(name)] = ep
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read entry points")
	}
	return groups, nil
}

func parseEntryPoint(spec string) (EntryPoint, error) {
	spec = strings.TrimSpace(spec)
	var ep EntryPoint
	if i := strings.IndexByte(spec, '['); i >= 0 {
		rest := strings.TrimSpace(spec[i:])
		if !strings.HasSuffix(rest, "]") {
			return EntryPoint{}, errors.New(errors.ErrCodeInvalidInput,
				"malformed entry point extras: %q", spec)
		}
		for _, e := range strings.Split(rest[1:len(rest)-1], ",") {
			if e = strings.TrimSpace(e); e != "" {
				ep.Extras = append(ep.Extras, e)
			}
		}
		spec = strings.TrimSpace(spec[:i])
	}
	module, attr, found := strings.Cut(spec, ":")
	ep.Module = strings.TrimSpace(module)
	if ep.Module == "" {
		return EntryPoint{}, errors.New(errors.ErrCodeInvalidInput, "entry point lacks a module")
	}
	if found {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			return EntryPoint{}, errors.New(errors.ErrCodeInvalidInput,
				"entry point has a colon but no object path")
		}
		ep.Attr = &attr
	}
	return ep, nil
}

// EntryPointsReport renders an entry point set as the report's
// entry_points object.
func EntryPointsReport(groups map[string]map[string]EntryPoint) map[string]any {
	report := make(map[string]any, len(groups))
	for group, entries := range groups {
		obj := make(map[string]any, len(entries))
		for name, ep := range entries {
			extras := ep.Extras
			if extras == nil {
				extras = []string{}
			}
			obj[name] = map[string]any{
				"module": ep.Module,
				"attr":   anyString(ep.Attr),
				"extras": extras,
			}
		}
		report[group] = obj
	}
	return report
}
