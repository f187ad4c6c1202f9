package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"ocrbridge/internal/bridge"
	"ocrbridge/internal/ocr"
)

// Bridge defines the OCR dependency.
type Bridge interface {
	Handle(ctx context.Context, inv bridge.Invocation) (string, error)
}

// LanguageLister reports installed language data.
type LanguageLister interface {
	Languages() ([]string, error)
}

// OCRService orchestrates OCR processing.
type OCRService struct {
	bridge Bridge
	langs  LanguageLister
}

// NewOCRService creates OCRService.
func NewOCRService(b Bridge, langs LanguageLister) *OCRService {
	return &OCRService{bridge: b, langs: langs}
}

// Invoke forwards a method-channel call to the bridge.
func (s *OCRService) Invoke(ctx context.Context, inv bridge.Invocation) (string, error) {
	return s.bridge.Handle(ctx, inv)
}

// Process persists the uploaded image and runs extractText against it.
func (s *OCRService) Process(ctx context.Context, id string, file io.Reader, header *multipart.FileHeader, lang string) (string, error) {
	tempPath, cleanup, err := ocr.SaveUploadedFile(file)
	if err != nil {
		name := "upload"
		if header != nil {
			name = header.Filename
		}
		return "", fmt.Errorf("persist upload (%s): %w", name, err)
	}
	defer cleanup()

	args := map[string]any{bridge.KeyImagePath: tempPath}
	if lang != "" {
		args[bridge.KeyLanguage] = lang
	}
	return s.bridge.Handle(ctx, bridge.Invocation{
		ID:        id,
		Method:    bridge.MethodExtractText,
		Arguments: args,
	})
}

// Languages lists installed language codes.
func (s *OCRService) Languages() ([]string, error) {
	if s.langs == nil {
		return []string{}, nil
	}
	return s.langs.Languages()
}
