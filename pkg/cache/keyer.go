package cache

// Keyer builds cache keys. Everything that influences a cached value must be
// part of its key, so keys for derived data hash the options that produced it.
type Keyer interface {
	// HTTPKey generates a key for an index API response.
	HTTPKey(namespace, key string) string

	// ReportKey generates a key for an inspection report, derived from the
	// archive's SHA-256 digest and the options the report was built with.
	ReportKey(sum string, opts ReportKeyOpts) string
}

// ReportKeyOpts captures the inspection options that change report content.
// Two reports for the same archive differ when these differ.
type ReportKeyOpts struct {
	CaseSensitive bool     `json:"case_sensitive"`
	Algorithms    []string `json:"algorithms,omitempty"`
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for an index API response.
// The key format is: http:namespace:key.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ReportKey generates a key for an inspection report.
// The key format is: report:hash(sum, opts).
func (k *DefaultKeyer) ReportKey(sum string, opts ReportKeyOpts) string {
	return hashKey("report", sum, opts)
}
