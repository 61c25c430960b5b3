// export.go handles the employee directory CSV export.
package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
)

// ExportEmployeesCSV downloads the full employee directory as CSV.
// GET /api/v1/employees/export.csv
//
// Response headers are set for file download:
//   - Content-Type: text/csv
//   - Content-Disposition: attachment with a dated filename
func (h *Handler) ExportEmployeesCSV(c *gin.Context) {
	employees, err := h.DB.AllEmployees(c.Request.Context())
	if err != nil {
		log.Printf("❌ Export: failed to load employees: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to export employees",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	data, err := employeesCSV(employees)
	if err != nil {
		log.Printf("❌ Export: CSV encoding failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "server_error",
			Message: "Failed to export employees",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	filename := fmt.Sprintf("employees_%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// employeesCSV renders the directory rows as CSV with a header line.
func employeesCSV(employees []models.Employee) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"matricule", "name", "email", "status", "source", "created_at"}); err != nil {
		return nil, err
	}
	for _, e := range employees {
		record := []string{
			e.Matricule,
			e.Name,
			e.Email,
			string(e.Status),
			e.Source,
			e.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
