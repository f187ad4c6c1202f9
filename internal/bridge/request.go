package bridge

import (
	"fmt"
	"strings"

	"ocrbridge/internal/ocr"
)

// Argument keys understood by extractText.
const (
	KeyImagePath = "imagePath"
	KeyLanguage  = "language"
)

// Request is the typed form of an extractText invocation.
type Request struct {
	ImagePath string
	// Language is empty when the caller did not choose one.
	Language string
}

// Options converts the request into engine options.
func (r Request) Options(tessdataDir string) ocr.Options {
	return ocr.Options{Language: r.Language, TessdataDir: tessdataDir}
}

// DecodeRequest validates untyped invocation arguments. It never panics.
func DecodeRequest(args any) (Request, error) {
	if args == nil {
		return Request{}, &ArgumentError{Reason: "missing arguments"}
	}
	params, ok := args.(map[string]any)
	if !ok {
		return Request{}, &ArgumentError{Reason: fmt.Sprintf("expected a map, got %T", args)}
	}

	var req Request
	switch v := params[KeyImagePath].(type) {
	case nil:
		return Request{}, &ArgumentError{Key: KeyImagePath, Reason: "is required"}
	case string:
		if strings.TrimSpace(v) == "" {
			return Request{}, &ArgumentError{Key: KeyImagePath, Reason: "is required"}
		}
		req.ImagePath = v
	default:
		return Request{}, &ArgumentError{Key: KeyImagePath, Reason: fmt.Sprintf("expected a string, got %T", v)}
	}

	switch v := params[KeyLanguage].(type) {
	case nil:
	case string:
		req.Language = strings.TrimSpace(v)
	default:
		return Request{}, &ArgumentError{Key: KeyLanguage, Reason: fmt.Sprintf("expected a string, got %T", v)}
	}

	return req, nil
}
