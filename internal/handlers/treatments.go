// treatments.go handles the treatment ledger admin endpoints.
package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
)

// ListTreatments returns the run history, newest first.
// GET /api/v1/treatments?page=&per_page=
func (h *Handler) ListTreatments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	treatments, total, err := h.DB.ListTreatments(c.Request.Context(), page, perPage)
	if err != nil {
		log.Printf("❌ Treatments: list failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list treatments",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	c.JSON(http.StatusOK, models.PaginatedResponse[models.Treatment]{
		Data:       treatments,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// GetTreatment returns one run with its per-employee rows and links.
// GET /api/v1/treatments/:id
func (h *Handler) GetTreatment(c *gin.Context) {
	ctx := c.Request.Context()

	treatment, err := h.DB.GetTreatment(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Treatment not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	employees, err := h.DB.ListTreatmentEmployees(ctx, treatment.ID)
	if err != nil {
		log.Printf("❌ Treatments: employee rows failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to load treatment detail",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	linkRows, err := h.DB.LinksForTreatment(ctx, treatment.ID)
	if err != nil {
		log.Printf("❌ Treatments: links failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to load treatment detail",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, models.TreatmentDetail{
		Treatment: *treatment,
		Employees: employees,
		Links:     linkRows,
	})
}
