// Package bridge adapts method-channel invocations to OCR recognition.
//
// A call carries a method name and an untyped argument map. The only method
// handled is extractText, which reads an image from the local filesystem and
// returns the recognized text. Every invocation ends with exactly one
// outcome: text or an error that Code maps to a wire code.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"ocrbridge/internal/ocr"
)

// MethodExtractText is the only method name the bridge handles.
const MethodExtractText = "extractText"

// Invocation is one cross-boundary call.
type Invocation struct {
	// ID correlates log lines; a uuid is assigned when empty.
	ID        string
	Method    string
	Arguments any
}

// Setup prepares the language data directory before recognition.
type Setup interface {
	Ensure(ctx context.Context) error
	Dir() string
}

// Bridge dispatches invocations to an OCR engine.
type Bridge struct {
	engine  ocr.Engine
	setup   Setup
	logger  *zap.Logger
	timeout time.Duration
	slots   *semaphore.Weighted
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeout bounds each invocation. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithMaxConcurrent limits how many recognitions run at once.
func WithMaxConcurrent(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New returns a Bridge. setup may be nil when language data is managed
// elsewhere.
func New(engine ocr.Engine, setup Setup, opts ...Option) *Bridge {
	b := &Bridge{
		engine:  engine,
		setup:   setup,
		logger:  zap.NewNop(),
		timeout: 2 * time.Minute,
		slots:   semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("bridge")
	return b
}

type outcome struct {
	text string
	err  error
}

// Handle runs one invocation to completion and returns the recognized text.
func (b *Bridge) Handle(ctx context.Context, inv Invocation) (string, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	log := b.logger.With(zap.String("invocation_id", inv.ID), zap.String("method", inv.Method))

	tessdataDir := ""
	if b.setup != nil {
		if err := b.setup.Ensure(ctx); err != nil {
			log.Warn("language data setup failed, continuing", zap.Error(err))
		}
		tessdataDir = b.setup.Dir()
	}

	if inv.Method != MethodExtractText {
		log.Debug("method not implemented")
		return "", ErrNotImplemented
	}

	req, err := DecodeRequest(inv.Arguments)
	if err != nil {
		log.Info("rejected invocation", zap.Error(err))
		return "", err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	img, _, err := ocr.LoadImage(req.ImagePath)
	if err != nil {
		log.Info("unreadable image", zap.String("image_path", req.ImagePath), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrUnreadableImage, err)
	}

	opts := req.Options(tessdataDir)
	log = log.With(zap.String("language", opts.Lang()), zap.String("engine", b.engine.Name()))

	// The slot is released by recognize once the engine returns, which may
	// be after Handle has given up on it.
	if err := b.slots.Acquire(ctx, 1); err != nil {
		return "", contextError(ctx, err, start)
	}

	text, err := b.recognize(ctx, img, opts, start)
	if err != nil {
		log.Warn("recognition failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	if text == "" {
		log.Info("no text recognized", zap.Duration("elapsed", time.Since(start)))
		return "", ErrNoText
	}
	log.Info("recognized text", zap.Int("chars", len(text)), zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// recognize runs the engine in its own goroutine so the caller is released
// when ctx ends even if the engine cannot be interrupted. The goroutine owns
// the semaphore slot acquired by Handle.
func (b *Bridge) recognize(ctx context.Context, img image.Image, opts ocr.Options, start time.Time) (string, error) {
	done := make(chan outcome, 1)
	go func() {
		defer b.slots.Release(1)
		text, err := b.engine.Recognize(ctx, img, opts)
		done <- outcome{text: strings.TrimSpace(text), err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctx.Err() != nil {
				return "", contextError(ctx, res.err, start)
			}
			return "", &EngineError{Engine: b.engine.Name(), Err: res.err}
		}
		return res.text, nil
	case <-ctx.Done():
		return "", contextError(ctx, ctx.Err(), start)
	}
}

// contextError reports the time actually spent, since the deadline that
// fired may be the caller's rather than the bridge's.
func contextError(ctx context.Context, err error, start time.Time) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
