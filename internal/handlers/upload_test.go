package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/config"
)

// uploadTestHandler builds a handler with just enough wiring for the
// request-validation paths, which all return before any collaborator
// is touched.
func uploadTestHandler(maxUploadMB int64) *Handler {
	return &Handler{Config: &config.Config{MaxUploadMB: maxUploadMB}}
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/treatments/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadTreatment_Rejections(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		field      string
		filename   string
		content    []byte
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing file field",
			field:      "",
			wantStatus: http.StatusBadRequest,
			wantCode:   "no_file",
		},
		{
			name:       "wrong field name",
			field:      "document",
			filename:   "payslips.pdf",
			content:    []byte("%PDF-1.4"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "no_file",
		},
		{
			name:       "non-pdf extension",
			field:      "file",
			filename:   "payslips.txt",
			content:    []byte("%PDF-1.4"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_extension",
		},
		{
			name:       "pdf extension but not a pdf",
			field:      "file",
			filename:   "payslips.pdf",
			content:    []byte("hello, definitely not a pdf"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := uploadTestHandler(1)
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = uploadRequest(t, tt.field, tt.filename, tt.content)

			h.UploadTreatment(c)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestUploadTreatment_OversizedBodyIsFileTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Cap at 1 MB and send a 2 MB file. MaxBytesReader trips while the
	// multipart form is being parsed, which must not be reported as a
	// missing file.
	h := uploadTestHandler(1)
	big := bytes.Repeat([]byte("a"), 2<<20)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = uploadRequest(t, "file", "payslips.pdf", big)

	h.UploadTreatment(c)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "file_too_large" {
		t.Errorf("error code = %q, want %q", resp.Error, "file_too_large")
	}
}
