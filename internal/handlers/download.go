// download.go handles the public redemption endpoints. These are the only
// unauthenticated routes besides health and login: the token in the URL is
// the credential, and the matricule check inside verify is the proof of
// identity.
package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/links"
)

// outcomeStatus maps protocol outcomes to HTTP status codes.
func outcomeStatus(o links.Outcome) int {
	switch o {
	case links.OutcomeInvalidToken:
		return http.StatusNotFound
	case links.OutcomeRevoked, links.OutcomeExpired:
		return http.StatusGone
	case links.OutcomeLocked:
		return http.StatusLocked
	case links.OutcomeWrongMatricule:
		return http.StatusBadRequest
	case links.OutcomeNotVerified:
		return http.StatusForbidden
	case links.OutcomeFileMissing:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

// outcomeMessage maps protocol outcomes to the user-facing reason strings.
func outcomeMessage(o links.Outcome) string {
	switch o {
	case links.OutcomeInvalidToken:
		return "This download link does not exist"
	case links.OutcomeRevoked:
		return "This download link has been revoked"
	case links.OutcomeExpired:
		return "This download link has expired"
	case links.OutcomeLocked:
		return "Too many incorrect attempts, this link is locked"
	case links.OutcomeWrongMatricule:
		return "Incorrect matricule"
	case links.OutcomeNotVerified:
		return "Verify your matricule before downloading"
	case links.OutcomeFileMissing:
		return "The file is no longer available, contact your administrator"
	default:
		return ""
	}
}

// ViewLink returns the read-only public state of a download link.
// GET /dl/:token
func (h *Handler) ViewLink(c *gin.Context) {
	info, err := h.Links.View(c.Request.Context(), c.Param("token"))
	if err != nil {
		log.Printf("❌ Download: view failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to look up the link",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if info.State == string(links.OutcomeInvalidToken) {
		c.JSON(http.StatusNotFound, info)
		return
	}
	c.JSON(http.StatusOK, info)
}

// VerifyLink runs the verify transition: the visitor submits their
// matricule and, on a match, receives the download authorization.
// POST /dl/:token/verify
func (h *Handler) VerifyLink(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "A matricule is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	result, err := h.Links.Verify(c.Request.Context(), c.Param("token"), req.Matricule, c.ClientIP())
	if err != nil {
		log.Printf("❌ Download: verify failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Verification failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if result.Outcome != links.OutcomeGranted {
		c.JSON(outcomeStatus(result.Outcome), models.VerifyResponse{
			Success:           false,
			Message:           outcomeMessage(result.Outcome),
			RemainingAttempts: result.RemainingAttempts,
		})
		return
	}

	c.JSON(http.StatusOK, models.VerifyResponse{
		Success:           true,
		Message:           "Matricule verified",
		RemainingAttempts: result.RemainingAttempts,
		DownloadURL:       fmt.Sprintf("/dl/%s/file", c.Param("token")),
		Filename:          result.Link.Filename,
		Downloads:         result.Link.Downloads,
	})
}

// FetchLink releases the file bytes. Only works after at least one
// successful verify on the same link.
// GET /dl/:token/file
func (h *Handler) FetchLink(c *gin.Context) {
	result, err := h.Links.Fetch(c.Request.Context(), c.Param("token"))
	if err != nil {
		log.Printf("❌ Download: fetch failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Download failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if result.Outcome != links.OutcomeGranted {
		c.JSON(outcomeStatus(result.Outcome), models.ErrorResponse{
			Error:   string(result.Outcome),
			Message: outcomeMessage(result.Outcome),
			Code:    outcomeStatus(result.Outcome),
		})
		return
	}

	c.FileAttachment(result.Path, result.Filename)
}
