package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ocrbridge/internal/bridge"
	"ocrbridge/internal/server/middleware"
)

// statusClientClosedRequest is the nginx convention for a caller that gave up.
const statusClientClosedRequest = 499

// OCRService defines the behavior consumed by the handler.
type OCRService interface {
	Invoke(ctx context.Context, inv bridge.Invocation) (string, error)
	Process(ctx context.Context, id string, file io.Reader, header *multipart.FileHeader, lang string) (string, error)
	Languages() ([]string, error)
}

// OCRHandler manages OCR HTTP interactions.
type OCRHandler struct {
	service   OCRService
	maxUpload int64
	logger    *zap.Logger
}

// NewOCRHandler builds the handler. maxUpload caps multipart bodies.
func NewOCRHandler(svc OCRService, maxUpload int64, logger *zap.Logger) *OCRHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}
	return &OCRHandler{service: svc, maxUpload: maxUpload, logger: logger.Named("handler")}
}

type invokeRequest struct {
	Method    string `json:"method" binding:"required"`
	Arguments any    `json:"arguments"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope mirrors a method-channel reply: exactly one of Result or Error.
type envelope struct {
	ID     string     `json:"id"`
	Result *string    `json:"result,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

// HandleInvoke dispatches a JSON method-channel call.
func (h *OCRHandler) HandleInvoke(c *gin.Context) {
	id := middleware.GetRequestID(c)

	var req invokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reply(c, id, "", &bridge.ArgumentError{Key: "method", Reason: "invocation payload must be a JSON object with a method"})
		return
	}

	text, err := h.service.Invoke(c.Request.Context(), bridge.Invocation{
		ID:        id,
		Method:    req.Method,
		Arguments: req.Arguments,
	})
	h.reply(c, id, text, err)
}

// HandleOCR processes multipart image uploads.
func (h *OCRHandler) HandleOCR(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "invalid multipart payload",
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "missing file",
		})
		return
	}
	defer file.Close()

	id := middleware.GetRequestID(c)
	text, err := h.service.Process(c.Request.Context(), id, file, header, c.Request.FormValue("lang"))
	h.reply(c, id, text, err)
}

// HandleLanguages lists installed language data.
func (h *OCRHandler) HandleLanguages(c *gin.Context) {
	langs, err := h.service.Languages()
	if err != nil {
		h.logger.Error("list languages", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "could not list languages",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"languages": langs})
}

func (h *OCRHandler) reply(c *gin.Context, id, text string, err error) {
	if err == nil {
		c.JSON(http.StatusOK, envelope{ID: id, Result: &text})
		return
	}

	code := bridge.Code(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("ocr error", zap.String("request_id", id), zap.String("code", code), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, envelope{ID: id, Error: &errorBody{Code: code, Message: message(code, err)}})
}

func statusFor(code string) int {
	switch code {
	case bridge.CodeInvalidArguments:
		return http.StatusBadRequest
	case bridge.CodeNotImplemented:
		return http.StatusNotImplemented
	case bridge.CodeUnreadableImage, bridge.CodeNoText:
		return http.StatusUnprocessableEntity
	case bridge.CodeTimeout:
		return http.StatusGatewayTimeout
	case bridge.CodeCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusBadGateway
	}
}

// message hides engine internals from callers.
func message(code string, err error) string {
	if code == bridge.CodeEngine {
		return "ocr error"
	}
	return err.Error()
}
