package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ocrbridge/internal/server/middleware"
)

// OCRHandler defines the interface for the OCR handler.
type OCRHandler interface {
	HandleInvoke(c *gin.Context)
	HandleOCR(c *gin.Context)
	HandleLanguages(c *gin.Context)
}

// Options configures the engine-wide middleware.
type Options struct {
	APIKey      string
	CORSOrigins []string
	Logger      *zap.Logger
}

// New wires up handlers to the Gin engine.
func New(opts Options, ocrHandler OCRHandler) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger.Named("http")))

	// Flutter web and other browser clients call the channel cross-origin.
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{"Origin", "Content-Type", middleware.APIKeyHeader, middleware.RequestIDHeader},
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	// Health check endpoint (no auth)
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.WithAPIKey(opts.APIKey))
	{
		v1.POST("/channel/invoke", ocrHandler.HandleInvoke)

		ocr := v1.Group("/ocr")
		ocr.POST("/image", ocrHandler.HandleOCR)
		ocr.GET("/languages", ocrHandler.HandleLanguages)
	}

	return r
}
