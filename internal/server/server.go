package server

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ocrbridge/internal/bridge"
	"ocrbridge/internal/config"
	"ocrbridge/internal/ocr"
	"ocrbridge/internal/ocr/tesseract"
	"ocrbridge/internal/server/handler"
	"ocrbridge/internal/server/router"
	"ocrbridge/internal/server/service"
	"ocrbridge/internal/tessdata"
)

// Run starts the HTTP server.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	installer := tessdata.NewInstaller(BundleFS(cfg.BundleDir), cfg.TessdataDir(), logger)
	if err := installer.Ensure(context.Background()); err != nil {
		logger.Warn("language data setup failed, recognition will still be attempted", zap.Error(err))
	}

	// Build dependency chain
	b := bridge.New(engine, installer,
		bridge.WithTimeout(cfg.Timeout),
		bridge.WithMaxConcurrent(cfg.MaxConcurrent),
		bridge.WithLogger(logger),
	)
	ocrService := service.NewOCRService(b, installer)
	ocrHandler := handler.NewOCRHandler(ocrService, cfg.MaxUploadBytes, logger)

	// Setup router with all routes and middleware
	r := router.New(router.Options{
		APIKey:      cfg.APIKey,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}, ocrHandler)

	addr := ":" + cfg.Port
	logger.Info("listening",
		zap.String("addr", addr),
		zap.String("engine", engine.Name()),
		zap.String("tessdata_dir", installer.Dir()),
	)
	return r.Run(addr)
}

// NewLogger builds a production JSON logger for MODE=prod and a console
// logger otherwise.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewEngine selects the OCR engine named by OCR_ENGINE.
func NewEngine(cfg *config.Config, logger *zap.Logger) (ocr.Engine, error) {
	switch cfg.Engine {
	case config.EngineCLI:
		path, err := ocr.ResolveBinary(cfg.Binary)
		if err != nil {
			return nil, fmt.Errorf("tesseract binary not found (%s): %w", cfg.Binary, err)
		}
		logger.Info("using tesseract binary", zap.String("path", path))
		return &ocr.CLIEngine{Binary: path, Timeout: cfg.Timeout}, nil
	default:
		e := tesseract.New()
		logger.Info("using libtesseract", zap.String("version", e.Version()))
		return e, nil
	}
}

// BundleFS returns nil when no bundle directory ships with the app.
func BundleFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	return os.DirFS(dir)
}
