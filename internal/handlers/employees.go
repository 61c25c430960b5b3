// employees.go handles the employee directory admin endpoints.
package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
)

// ListEmployees returns a paginated employee listing.
// GET /api/v1/employees?page=&per_page=&status=&search=
func (h *Handler) ListEmployees(c *gin.Context) {
	var params models.EmployeeListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid query parameters",
			Code:    http.StatusBadRequest,
		})
		return
	}

	employees, total, err := h.DB.ListEmployees(c.Request.Context(), params)
	if err != nil {
		log.Printf("❌ Employees: list failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list employees",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	c.JSON(http.StatusOK, models.PaginatedResponse[models.Employee]{
		Data:       employees,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: total,
		TotalPages: (total + params.PerPage - 1) / params.PerPage,
	})
}

// GetEmployee returns a single employee.
// GET /api/v1/employees/:id
func (h *Handler) GetEmployee(c *gin.Context) {
	employee, err := h.DB.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Employee not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, employee)
}

// CreateEmployee creates a manually entered employee.
// POST /api/v1/employees
func (h *Handler) CreateEmployee(c *gin.Context) {
	var req models.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Matricule, name, and a valid email are required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	employee := &models.Employee{
		Matricule: strings.TrimSpace(req.Matricule),
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		Status:    models.EmployeeActive,
		Source:    models.SourceManual,
	}

	if err := h.DB.CreateEmployee(c.Request.Context(), employee); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "matricule_taken",
				Message: "An employee with this matricule already exists",
				Code:    http.StatusConflict,
			})
			return
		}
		log.Printf("❌ Employees: create failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create employee",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, employee)
}

// UpdateEmployee applies a partial update to an employee.
// PATCH /api/v1/employees/:id
func (h *Handler) UpdateEmployee(c *gin.Context) {
	var req models.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if req.Status != nil {
		switch models.EmployeeStatus(*req.Status) {
		case models.EmployeeActive, models.EmployeeInactive, models.EmployeeRemoved:
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_status",
				Message: "Status must be active, inactive, or removed",
				Code:    http.StatusBadRequest,
			})
			return
		}
	}

	employee, err := h.DB.UpdateEmployee(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Employee not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, employee)
}

// DeleteEmployee removes an employee. Employees are never hard-deleted —
// this is a transition to the "removed" status.
// DELETE /api/v1/employees/:id
func (h *Handler) DeleteEmployee(c *gin.Context) {
	if err := h.DB.SetEmployeeStatus(c.Request.Context(), c.Param("id"), models.EmployeeRemoved); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Employee not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	c.Status(http.StatusNoContent)
}
