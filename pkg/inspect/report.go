package inspect

import (
	"encoding/json"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/verify"
)

// Report is the JSON-serializable result of inspecting one package.
// Archive inspections carry a WheelIdentity; directory and dist-info
// inspections leave it nil and its keys off the wire.
type Report struct {
	*WheelIdentity
	Valid           bool             `json:"valid"`
	ValidationError *ValidationError `json:"validation_error,omitempty"`
	Findings        []verify.Finding `json:"findings"`
	DistInfo        map[string]any   `json:"dist_info"`
	Derived         Derived          `json:"derived"`
}

// WheelIdentity holds the facts read from a wheel's filename plus the
// fingerprint of the archive itself.
type WheelIdentity struct {
	Filename string   `json:"filename"`
	Project  string   `json:"project"`
	Version  string   `json:"version"`
	BuildVer *string  `json:"buildver"`
	PyVer    []string `json:"pyver"`
	ABI      []string `json:"abi"`
	Arch     []string `json:"arch"`
	File     FileInfo `json:"file"`
}

// FileInfo fingerprints the archive file as a whole.
type FileInfo struct {
	Size    int64       `json:"size"`
	Digests FileDigests `json:"digests"`
}

// FileDigests are hex digests of the archive bytes.
type FileDigests struct {
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
}

// ValidationError records the structural problem that made a package
// invalid: a missing or malformed RECORD, a dist-info directory that
// cannot be located, or a name that contradicts the wheel filename.
type ValidationError struct {
	Type string `json:"type"`
	Str  string `json:"str"`
}

// Derived holds facts computed from the parsed dist-info files rather
// than read out of them directly.
type Derived struct {
	ReadmeRenders        *bool    `json:"readme_renders"`
	DescriptionInBody    bool     `json:"description_in_body"`
	DescriptionInHeaders bool     `json:"description_in_headers"`
	Keywords             []string `json:"keywords"`
	KeywordSeparator     *string  `json:"keyword_separator"`
	Dependencies         []string `json:"dependencies"`
	Modules              []string `json:"modules"`
}

func newReport(identity *WheelIdentity) *Report {
	return &Report{
		WheelIdentity: identity,
		Valid:         true,
		Findings:      []verify.Finding{},
		DistInfo:      map[string]any{},
		Derived:       emptyDerived(),
	}
}

// flag records a structural validation problem. Every problem clears
// valid; the first one becomes the report's validation_error.
func (r *Report) flag(err error) {
	r.Valid = false
	if r.ValidationError == nil {
		r.ValidationError = &ValidationError{
			Type: string(errors.GetCode(err)),
			Str:  err.Error(),
		}
	}
}

// MarshalReport renders a report as indented JSON. Struct layout and
// Go's sorted map marshaling fix the key order, so equal reports always
// serialize to identical bytes.
func MarshalReport(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
