// upload.go handles the treatment upload endpoint — the entry point of the
// whole segmentation and distribution pipeline.
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/pdf"
	"github.com/payflow/payflow-api/internal/services/pipeline"
)

// UploadTreatment accepts a consolidated payslip PDF and runs the pipeline
// synchronously within the request.
// POST /api/v1/treatments/upload (multipart field "file")
//
// Error codes: no_file, bad_extension, file_too_large, invalid_pdf, busy,
// internal_error. A run that processed only part of the detected employees
// still answers 200 with status "partial".
func (h *Handler) UploadTreatment(c *gin.Context) {
	// Cap the request body before parsing the multipart form.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Config.MaxUploadBytes())

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// A body over the cap surfaces here as a MaxBytesError, which is
		// a size problem, not a missing file.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "file_too_large",
				Message: fmt.Sprintf("File exceeds the %d MB upload limit", h.Config.MaxUploadMB),
				Code:    http.StatusRequestEntityTooLarge,
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no_file",
			Message: "A PDF file is required in the 'file' field",
			Code:    http.StatusBadRequest,
		})
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	if filename == "" || filename == "." || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_extension",
			Message: "Only .pdf files are accepted",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if fileHeader.Size > h.Config.MaxUploadBytes() {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Error:   "file_too_large",
			Message: fmt.Sprintf("File exceeds the %d MB upload limit", h.Config.MaxUploadMB),
			Code:    http.StatusRequestEntityTooLarge,
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to read the uploaded file",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	defer file.Close()

	// Check the magic bytes, not just the extension.
	head := make([]byte, 8)
	n, _ := file.Read(head)
	if !pdf.ValidatePDF(head[:n]) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_pdf",
			Message: "The uploaded file is not a valid PDF",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to read the uploaded file",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	treatment, err := h.Pipeline.Run(c.Request.Context(), file, filename)
	if err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "busy",
				Message: "A treatment is already in progress, try again shortly",
				Code:    http.StatusConflict,
			})
			return
		}
		log.Printf("❌ Upload: treatment failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Treatment failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	resp := models.UploadResponse{
		TreatmentID:  treatment.ID,
		RunFolder:    treatment.RunFolder,
		Detected:     treatment.DetectedCount,
		Processed:    treatment.ProcessedCount,
		NewEmployees: treatment.NewEmployees,
		Status:       string(treatment.Status),
	}
	switch treatment.Status {
	case models.TreatmentComplete:
		resp.Message = fmt.Sprintf("Processed %d payslips, %d new employees onboarded",
			treatment.ProcessedCount, treatment.NewEmployees)
	default:
		resp.Message = fmt.Sprintf("Partial success: %d of %d payslips processed",
			treatment.ProcessedCount, treatment.DetectedCount)
	}
	c.JSON(http.StatusOK, resp)
}
