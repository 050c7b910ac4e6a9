package metadata

import (
	"io"
	"strings"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// WheelInfo is a parsed WHEEL file.
type WheelInfo struct {
	Version       string
	Generator     string
	RootIsPurelib bool
	Tags          []string
	Build         *string

	headers []header
	body    *string
}

// ParseWheel reads a WHEEL file. Wheel-Version, Generator,
// Root-Is-Purelib and at least one Tag are required.
func ParseWheel(r io.Reader) (*WheelInfo, error) {
	headers, body, err := scanHeaders(r)
	if err != nil {
		return nil, err
	}
	w := &WheelInfo{headers: headers, body: body}
	seen := make(map[string]bool)
	for _, h := range headers {
		switch h.name {
		case "wheel_version", "generator", "root_is_purelib", "build":
			if seen[h.name] {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"WHEEL field %s occurs more than once", h.name)
			}
			seen[h.name] = true
		}
		switch h.name {
		case "wheel_version":
			w.Version = h.value
		case "generator":
			w.Generator = h.value
		case "root_is_purelib":
			b, err := parseBool(h.value)
			if err != nil {
				return nil, err
			}
			w.RootIsPurelib = b
		case "tag":
			w.Tags = append(w.Tags, h.value)
		case "build":
			build := h.value
			w.Build = &build
		}
	}
	switch {
	case !seen["wheel_version"]:
		return nil, errors.New(errors.ErrCodeInvalidInput, "WHEEL file lacks a wheel_version field")
	case !seen["generator"]:
		return nil, errors.New(errors.ErrCodeInvalidInput, "WHEEL file lacks a generator field")
	case !seen["root_is_purelib"]:
		return nil, errors.New(errors.ErrCodeInvalidInput, "WHEEL file lacks a root_is_purelib field")
	case len(w.Tags) == 0:
		return nil, errors.New(errors.ErrCodeInvalidInput, "WHEEL file lacks a tag field")
	}
	return w, nil
}

// AsReport renders the WHEEL file as the report's wheel object.
func (w *WheelInfo) AsReport() map[string]any {
	report := map[string]any{
		"wheel_version":   w.Version,
		"generator":       w.Generator,
		"root_is_purelib": w.RootIsPurelib,
		"tag":             w.Tags,
	}
	if w.Build != nil {
		report["build"] = *w.Build
	}
	for _, h := range w.headers {
		switch h.name {
		case "wheel_version", "generator", "root_is_purelib", "tag", "build":
		default:
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
	if w.body != nil {
		if v := strfield(*w.body); v != nil {
			report["BODY"] = *v
		}
	}
	return report
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "on", "1":
		return true, nil
	case "false", "f", "no", "n", "off", "0":
		return false, nil
	}
	return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean field value: %q", s)
}
