package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const defaultBinary = "tesseract"

// CLIEngine runs the tesseract binary for each recognition.
type CLIEngine struct {
	Binary  string
	Timeout time.Duration
}

// NewCLIEngine returns a CLIEngine with sane defaults.
func NewCLIEngine() *CLIEngine {
	return &CLIEngine{
		Binary:  defaultBinary,
		Timeout: 2 * time.Minute,
	}
}

func (p *CLIEngine) Name() string { return "tesseract-cli" }

// Recognize writes img to a temporary PNG, runs tesseract against it and
// returns the cleaned stdout.
func (p *CLIEngine) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	if img == nil {
		return "", errors.New("image is required")
	}
	binary := p.Binary
	if binary == "" {
		binary = defaultBinary
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	inputPath, cleanup, err := SaveUploadedFile(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer cleanup()

	args := []string{inputPath, "stdout", "-l", opts.Lang()}
	if opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", opts.TessdataDir)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseOutputBytes(stdout.Bytes()), nil
}

// parseOutputBytes drops empty pages and joins the rest with a blank line.
// Tesseract terminates every page with a form feed.
func parseOutputBytes(data []byte) string {
	raw := strings.Split(string(data), "\f")
	var pages []string
	for _, chunk := range raw {
		text := strings.TrimSpace(normalizeNewlines(chunk))
		if text == "" {
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n")
}

func normalizeNewlines(in string) string {
	return strings.ReplaceAll(in, "\r\n", "\n")
}

// SaveUploadedFile copies the provided reader to a temporary image file.
func SaveUploadedFile(r io.Reader) (string, func(), error) {
	tmpFile, err := os.CreateTemp("", "ocr-input-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("create temp image: %w", err)
	}

	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}

	if _, err := io.Copy(tmpFile, r); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp image: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("sync temp image: %w", err)
	}

	return tmpFile.Name(), cleanup, nil
}

// ResolveBinary returns the absolute binary path if available on PATH.
func ResolveBinary(binary string) (string, error) {
	if binary == "" {
		binary = defaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs, nil
	}
	return path, nil
}
