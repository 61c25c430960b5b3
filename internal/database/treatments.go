// treatments.go — the treatment ledger: one row per pipeline run plus the
// per-employee join records, written at the pipeline's commit checkpoints.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/payflow/payflow-api/internal/models"
)

// CreateTreatment opens a run record. The pipeline calls this right after
// segmentation, before any per-employee artifact is produced.
func (db *DB) CreateTreatment(ctx context.Context, t *models.Treatment) error {
	query := `
		INSERT INTO treatments (run_folder, source_filename, source_size_bytes, page_count,
			detected_count, processed_count, new_employees, duration_seconds, status, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		t.RunFolder, t.SourceFilename, t.SourceSizeBytes, t.PageCount,
		t.DetectedCount, t.ProcessedCount, t.NewEmployees, t.DurationSeconds,
		t.Status, t.ErrorText,
	).Scan(&t.ID, &t.CreatedAt)
}

// CloseTreatment finalizes a run record with its outcome counts and status.
func (db *DB) CloseTreatment(ctx context.Context, t *models.Treatment) error {
	_, err := db.ExecContext(ctx, `
		UPDATE treatments
		SET processed_count = $2, duration_seconds = $3, status = $4, error_text = $5
		WHERE id = $1`,
		t.ID, t.ProcessedCount, t.DurationSeconds, t.Status, t.ErrorText)
	if err != nil {
		return fmt.Errorf("failed to close treatment: %w", err)
	}
	return nil
}

// GetTreatment retrieves a single treatment by ID.
func (db *DB) GetTreatment(ctx context.Context, id string) (*models.Treatment, error) {
	var t models.Treatment
	err := db.GetContext(ctx, &t, `SELECT * FROM treatments WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("treatment not found: %w", err)
	}
	return &t, nil
}

// ListTreatments returns recent treatments, newest first.
func (db *DB) ListTreatments(ctx context.Context, page, perPage int) ([]models.Treatment, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM treatments`); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	var treatments []models.Treatment
	err := db.SelectContext(ctx, &treatments,
		`SELECT * FROM treatments ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}

	return treatments, total, nil
}

// CreateTreatmentEmployee records one successfully segmented employee of a run.
func (db *DB) CreateTreatmentEmployee(ctx context.Context, te *models.TreatmentEmployee) error {
	query := `
		INSERT INTO treatment_employees (treatment_id, employee_id, matricule_extract,
			period_extract, output_filename, email_sent, email_sent_at, email_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return db.QueryRowContext(ctx, query,
		te.TreatmentID, te.EmployeeID, te.MatriculeExtract,
		te.PeriodExtract, te.OutputFilename, te.EmailSent, te.EmailSentAt, te.EmailError,
	).Scan(&te.ID)
}

// GetTreatmentEmployee returns the audit row for one (treatment, employee)
// pair, or (nil, nil) when the run recorded none.
func (db *DB) GetTreatmentEmployee(ctx context.Context, treatmentID, employeeID string) (*models.TreatmentEmployee, error) {
	var te models.TreatmentEmployee
	err := db.GetContext(ctx, &te, `
		SELECT * FROM treatment_employees
		WHERE treatment_id = $1 AND employee_id = $2`,
		treatmentID, employeeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("treatment employee lookup failed: %w", err)
	}
	return &te, nil
}

// UpdateTreatmentEmployeeEmail records the notification outcome for one
// employee of a run — sent-or-not plus the error text when delivery failed.
func (db *DB) UpdateTreatmentEmployeeEmail(ctx context.Context, te *models.TreatmentEmployee) error {
	_, err := db.ExecContext(ctx, `
		UPDATE treatment_employees
		SET email_sent = $2, email_sent_at = $3, email_error = $4
		WHERE id = $1`,
		te.ID, te.EmailSent, te.EmailSentAt, te.EmailError)
	if err != nil {
		return fmt.Errorf("failed to update email audit: %w", err)
	}
	return nil
}

// ListTreatmentEmployees returns the per-employee rows of a treatment,
// joined with employee identity for display.
func (db *DB) ListTreatmentEmployees(ctx context.Context, treatmentID string) ([]models.TreatmentEmployeeRow, error) {
	var rows []models.TreatmentEmployeeRow
	err := db.SelectContext(ctx, &rows, `
		SELECT te.*, e.name AS employee_name, e.matricule AS employee_matricule
		FROM treatment_employees te
		JOIN employees e ON e.id = te.employee_id
		WHERE te.treatment_id = $1
		ORDER BY te.id`,
		treatmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list treatment employees: %w", err)
	}
	return rows, nil
}
