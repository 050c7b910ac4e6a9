// Package schema carries the JSON Schemas inspection reports conform
// to and validates reports against them. Two variants exist: wheel
// reports add the filename-derived keys and the archive fingerprint to
// the dist-info shape.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

// Kind selects a report variant.
type Kind string

const (
	KindWheel    Kind = "wheel"
	KindDistInfo Kind = "dist-info"
)

//go:embed wheel.schema.json
var wheelDocument []byte

//go:embed distinfo.schema.json
var distInfoDocument []byte

var (
	wheelSchema    = mustCompile("wheel.schema.json", wheelDocument)
	distInfoSchema = mustCompile("distinfo.schema.json", distInfoDocument)
)

func mustCompile(name string, doc []byte) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(name, bytes.NewReader(doc)); err != nil {
		panic(err)
	}
	return c.MustCompile(name)
}

// ParseKind maps a user-supplied variant name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindWheel:
		return KindWheel, nil
	case KindDistInfo:
		return KindDistInfo, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown schema kind %q (want wheel or dist-info)", s)
}

// Wheel returns the compiled schema for archive inspection reports.
func Wheel() *jsonschema.Schema {
	return wheelSchema
}

// DistInfo returns the compiled schema for directory and metadata-only
// inspection reports.
func DistInfo() *jsonschema.Schema {
	return distInfoSchema
}

// Document returns the raw schema JSON for a kind, for serving as-is.
func Document(kind Kind) ([]byte, error) {
	switch kind {
	case KindWheel:
		return wheelDocument, nil
	case KindDistInfo:
		return distInfoDocument, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown schema kind %q", kind)
}

// ValidateReport checks a serialized report against the schema for the
// given kind.
func ValidateReport(data []byte, kind Kind) error {
	var sch *jsonschema.Schema
	switch kind {
	case KindWheel:
		sch = wheelSchema
	case KindDistInfo:
		sch = distInfoSchema
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown schema kind %q", kind)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "report is not valid JSON")
	}
	if err := sch.Validate(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "report does not conform to the %s schema", kind)
	}
	return nil
}
