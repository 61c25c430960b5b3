// maintenance.go handles the storage and link housekeeping endpoints.
//
// Run directories are retained for the link expiry window: once every link
// of a run has expired, neither side of the run's file pair can be fetched,
// so the directories are safe to remove.
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/storage"
)

func (h *Handler) retention() time.Duration {
	return time.Duration(h.Config.LinkExpiryDays) * 24 * time.Hour
}

// MaintenanceStats reports what a cleanup pass would touch, without
// touching anything.
// GET /api/v1/maintenance/stats
func (h *Handler) MaintenanceStats(c *gin.Context) {
	ctx := c.Request.Context()

	expired, err := h.DB.CountExpiredActiveLinks(ctx)
	if err != nil {
		log.Printf("❌ Maintenance: expired link count failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to compute stats",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	employees, treatments, linkCount, err := h.DB.TableCounts(ctx)
	if err != nil {
		log.Printf("❌ Maintenance: table counts failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to compute stats",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	oldRuns := h.Storage.OldRuns(time.Now(), h.retention())
	var oldBytes int64
	for _, run := range oldRuns {
		oldBytes += run.Bytes
	}

	c.JSON(http.StatusOK, models.MaintenanceStats{
		ExpiredLinks:   expired,
		OldRunDirs:     len(oldRuns),
		OldRunDirBytes: oldBytes,
		UploadsBytes:   storage.FolderSize(h.Storage.UploadRoot()),
		OutputBytes:    storage.FolderSize(h.Storage.OutputRoot()),
		EmployeeCount:  employees,
		TreatmentCount: treatments,
		LinkCount:      linkCount,
	})
}

// MaintenanceCleanup revokes expired links and removes run directories past
// the retention window.
// POST /api/v1/maintenance/cleanup
func (h *Handler) MaintenanceCleanup(c *gin.Context) {
	ctx := c.Request.Context()

	revoked, err := h.DB.RevokeExpiredLinks(ctx)
	if err != nil {
		log.Printf("❌ Maintenance: revoking expired links failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Cleanup failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	var removed int
	var freed int64
	for _, run := range h.Storage.OldRuns(time.Now(), h.retention()) {
		bytes, err := h.Storage.RemoveRun(run.RunID)
		if err != nil {
			log.Printf("⚠️  Maintenance: failed to remove run %s: %v", run.RunID, err)
			continue
		}
		removed++
		freed += bytes
	}

	log.Printf("✅ Maintenance: revoked %d links, removed %d run dirs (%d bytes)", revoked, removed, freed)
	c.JSON(http.StatusOK, models.CleanupResult{
		ExpiredLinksRevoked: revoked,
		RunDirsRemoved:      removed,
		BytesFreed:          freed,
	})
}
