package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ocrbridge/internal/bridge"
)

const handlerExpectedText = "content of the receipt"

type fakeService struct {
	text     string
	err      error
	langs    []string
	langsErr error

	lastInv  bridge.Invocation
	lastLang string
	lastBody string
}

func (f *fakeService) Invoke(ctx context.Context, inv bridge.Invocation) (string, error) {
	f.lastInv = inv
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeService) Process(ctx context.Context, id string, file io.Reader, header *multipart.FileHeader, lang string) (string, error) {
	data, _ := io.ReadAll(file)
	f.lastBody = string(data)
	f.lastLang = lang
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeService) Languages() ([]string, error) { return f.langs, f.langsErr }

func newTestRouter(h *OCRHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.POST("/invoke", h.HandleInvoke)
	r.POST("/ocr", h.HandleOCR)
	r.GET("/languages", h.HandleLanguages)
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return env
}

func invokeRequestBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(data)
}

func TestHandleInvoke_Success(t *testing.T) {
	svc := &fakeService{text: "HELLO"}
	r := newTestRouter(NewOCRHandler(svc, 0, nil))

	body := invokeRequestBody(t, map[string]any{
		"method":    "extractText",
		"arguments": map[string]any{"imagePath": "/tmp/sample.png"},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/invoke", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Result == nil || *env.Result != "HELLO" || env.Error != nil {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
	args, ok := svc.lastInv.Arguments.(map[string]any)
	if !ok || args["imagePath"] != "/tmp/sample.png" {
		t.Fatalf("arguments not forwarded: %#v", svc.lastInv.Arguments)
	}
}

func TestHandleInvoke_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not implemented", bridge.ErrNotImplemented, http.StatusNotImplemented, bridge.CodeNotImplemented},
		{"missing argument", &bridge.ArgumentError{Key: "imagePath", Reason: "is required"}, http.StatusBadRequest, bridge.CodeInvalidArguments},
		{"unreadable image", fmt.Errorf("%w: boom", bridge.ErrUnreadableImage), http.StatusUnprocessableEntity, bridge.CodeUnreadableImage},
		{"no text", bridge.ErrNoText, http.StatusUnprocessableEntity, bridge.CodeNoText},
		{"timeout", bridge.ErrTimeout, http.StatusGatewayTimeout, bridge.CodeTimeout},
		{"canceled", context.Canceled, statusClientClosedRequest, bridge.CodeCanceled},
		{"engine", &bridge.EngineError{Engine: "tesseract", Err: errors.New("segfault at 0x0")}, http.StatusBadGateway, bridge.CodeEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(NewOCRHandler(&fakeService{err: tt.err}, 0, nil))

			body := invokeRequestBody(t, map[string]any{"method": "extractText", "arguments": map[string]any{}})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/invoke", body))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d got %d", tt.wantStatus, w.Code)
			}
			env := decodeEnvelope(t, w)
			if env.Result != nil || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("unexpected envelope: %s", w.Body.String())
			}
			if strings.Contains(env.Error.Message, "segfault") {
				t.Fatalf("engine details leaked: %s", env.Error.Message)
			}
		})
	}
}

func TestHandleInvoke_InvalidPayload(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{}, 0, nil))

	for _, payload := range []string{"invalid", `{"arguments": {}}`, `{"method": ""}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(payload))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400 got %d", payload, w.Code)
		}
		env := decodeEnvelope(t, w)
		if env.Result != nil || env.Error == nil || env.Error.Code != bridge.CodeInvalidArguments {
			t.Fatalf("payload %q: unexpected envelope: %s", payload, w.Body.String())
		}
		if !strings.Contains(env.Error.Message, "method") {
			t.Fatalf("payload %q: expected descriptive message, got %q", payload, env.Error.Message)
		}
	}
}

func TestHandleOCR_Success(t *testing.T) {
	svc := &fakeService{text: handlerExpectedText}
	r := newTestRouter(NewOCRHandler(svc, 0, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newMultipartRequest(t, map[string]string{"lang": "eng"}, "image-bytes"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected json content type got %s", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, handlerExpectedText) {
		t.Fatalf("unexpected body: %s", body)
	}
	if svc.lastLang != "eng" || svc.lastBody != "image-bytes" {
		t.Fatalf("upload not forwarded: lang=%q body=%q", svc.lastLang, svc.lastBody)
	}
}

func TestHandleOCR_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{}, 0, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ocr", nil))

	// Gin returns 404 for method not allowed on unregistered routes
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestHandleOCR_InvalidMultipart(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{}, 0, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ocr", bytes.NewBufferString("invalid")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestHandleOCR_TooLarge(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{}, 64, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newMultipartRequest(t, nil, strings.Repeat("x", 4096)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestHandleOCR_MissingFile(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{}, 0, nil))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/ocr", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestHandleOCR_ServiceError(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{err: errors.New("boom")}, 0, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newMultipartRequest(t, nil, "image-bytes"))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", w.Code)
	}
}

func TestHandleLanguages(t *testing.T) {
	r := newTestRouter(NewOCRHandler(&fakeService{langs: []string{"deu", "eng"}}, 0, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/languages", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"languages":["deu","eng"]}` {
		t.Fatalf("unexpected body: %s", body)
	}

	r = newTestRouter(NewOCRHandler(&fakeService{langsErr: errors.New("eperm")}, 0, nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/languages", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
}

func newMultipartRequest(t *testing.T, fields map[string]string, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	part, err := writer.CreateFormFile("file", "receipt.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/ocr", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
