// Package describe judges whether a package's long description would
// render on an index page.
package describe

import (
	"mime"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renders reports whether the description renders under its declared
// content type. Markdown goes through the renderer; plain text always
// renders. A nil result means undetermined: there is no description,
// or the markup is one this package has no renderer for
// (reStructuredText, which is also the historical default when no
// content type is declared, and anything unrecognized).
func Renders(text, contentType string) *bool {
	if text == "" {
		return nil
	}
	if contentType == "" {
		return nil
	}
	mediatype, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	switch strings.ToLower(mediatype) {
	case "text/plain":
		return boolPtr(true)
	case "text/markdown":
		renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle("notty"))
		if err != nil {
			return boolPtr(false)
		}
		if _, err := renderer.Render(text); err != nil {
			return boolPtr(false)
		}
		return boolPtr(true)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
