// Package ocr defines the engine contract used by the bridge and the
// Tesseract CLI engine.
package ocr

import (
	"context"
	"image"
	"strings"
)

// DefaultLanguage is the profile used when a request names no language.
const DefaultLanguage = "eng"

// Options configures a single recognition.
type Options struct {
	// Language is a Tesseract language code such as "eng" or "chi_sim+eng".
	// Empty selects DefaultLanguage.
	Language string
	// TessdataDir points the engine at a directory of *.traineddata files.
	// Empty leaves the engine's built-in search path in place.
	TessdataDir string
}

// Lang returns the effective language code.
func (o Options) Lang() string {
	if l := strings.TrimSpace(o.Language); l != "" {
		return l
	}
	return DefaultLanguage
}

// Engine recognizes text in a decoded image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, opts Options) (string, error)
}
