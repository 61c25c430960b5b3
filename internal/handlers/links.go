// links.go handles the admin surface of download links: listing, manual
// revocation, and resending the notification mail.
package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/links"
)

// ListLinks returns download links, optionally filtered.
// GET /api/v1/links?treatment_id=&employee_id=&page=&per_page=
func (h *Handler) ListLinks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	linkRows, total, err := h.DB.ListLinks(c.Request.Context(),
		c.Query("treatment_id"), c.Query("employee_id"), page, perPage)
	if err != nil {
		log.Printf("❌ Links: list failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list links",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, models.PaginatedResponse[models.DownloadLink]{
		Data:       linkRows,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// RevokeLink administratively revokes a link. Idempotent.
// POST /api/v1/links/:id/revoke
func (h *Handler) RevokeLink(c *gin.Context) {
	if err := h.DB.RevokeLink(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// ResendLink re-sends the notification mail for an existing link, e.g.
// after a delivery failure during the pipeline run.
// POST /api/v1/links/:id/resend
func (h *Handler) ResendLink(c *gin.Context) {
	ctx := c.Request.Context()

	link, err := h.DB.GetLink(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	if state := links.StateOf(link, time.Now()); state != links.StateActive {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "link_" + string(state),
			Message: "Only active links can be resent",
			Code:    http.StatusConflict,
		})
		return
	}

	employee, err := h.DB.GetEmployee(ctx, link.EmployeeID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Employee not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	if err := h.Mailer.SendLink(ctx, employee, link); err != nil {
		log.Printf("❌ Links: resend to %s failed: %v", employee.Email, err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "mail_failed",
			Message: "Failed to send the notification mail",
			Code:    http.StatusBadGateway,
		})
		return
	}

	// Bring the run's email audit in line with the manual resend so the
	// treatment detail no longer shows the stale failure.
	if te, err := h.DB.GetTreatmentEmployee(ctx, link.TreatmentID, link.EmployeeID); err == nil && te != nil {
		te.MarkEmailSent(time.Now())
		if uerr := h.DB.UpdateTreatmentEmployeeEmail(ctx, te); uerr != nil {
			log.Printf("⚠️  Links: failed to update email audit after resend: %v", uerr)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent", "email": employee.Email})
}
