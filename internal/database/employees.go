// employees.go — the employee directory: authoritative matricule → record
// mapping, onboarding of employees discovered during segmentation, and the
// admin CRUD queries.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/payflow/payflow-api/internal/models"
)

// CreateEmployee inserts a new employee record.
func (db *DB) CreateEmployee(ctx context.Context, e *models.Employee) error {
	query := `
		INSERT INTO employees (matricule, name, email, status, source)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		e.Matricule, e.Name, e.Email, e.Status, e.Source,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetEmployee retrieves a single employee by ID.
func (db *DB) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	var e models.Employee
	err := db.GetContext(ctx, &e, `SELECT * FROM employees WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("employee not found: %w", err)
	}
	return &e, nil
}

// FindByMatricule looks up an ACTIVE employee by matricule. Returns
// (nil, nil) when no active employee carries it — absence is a normal
// outcome for the pipeline, not an error.
func (db *DB) FindByMatricule(ctx context.Context, matricule string) (*models.Employee, error) {
	var e models.Employee
	err := db.GetContext(ctx, &e,
		`SELECT * FROM employees WHERE matricule = $1 AND status = $2`,
		matricule, models.EmployeeActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("matricule lookup failed: %w", err)
	}
	return &e, nil
}

// ActiveMatricules returns the set of matricules of all active employees,
// used by new-employee detection.
func (db *DB) ActiveMatricules(ctx context.Context) (map[string]bool, error) {
	var matricules []string
	err := db.SelectContext(ctx, &matricules,
		`SELECT matricule FROM employees WHERE status = $1`, models.EmployeeActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load active matricules: %w", err)
	}
	set := make(map[string]bool, len(matricules))
	for _, m := range matricules {
		set[m] = true
	}
	return set, nil
}

// OnboardEmployees inserts the given employees in one transaction.
// A failure on one candidate skips that candidate and continues; a failure
// at commit rolls back the whole batch and reports zero added.
func (db *DB) OnboardEmployees(ctx context.Context, employees []*models.Employee) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin onboarding transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO employees (matricule, name, email, status, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (matricule) DO NOTHING
		RETURNING id, created_at, updated_at`

	added := 0
	for _, e := range employees {
		err := tx.QueryRowContext(ctx, query,
			e.Matricule, e.Name, e.Email, e.Status, e.Source,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			// Matricule already present — detect_new raced a concurrent insert.
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to insert employee %s: %w", e.Matricule, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("onboarding commit failed: %w", err)
	}
	return added, nil
}

// UpdateEmployee applies the non-nil fields of the request to an employee.
func (db *DB) UpdateEmployee(ctx context.Context, id string, req models.UpdateEmployeeRequest) (*models.Employee, error) {
	var sets []string
	var args []interface{}
	argNum := 1

	if req.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argNum))
		args = append(args, *req.Name)
		argNum++
	}
	if req.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", argNum))
		args = append(args, *req.Email)
		argNum++
	}
	if req.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *req.Status)
		argNum++
	}
	if len(sets) == 0 {
		return db.GetEmployee(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE employees SET %s WHERE id = $%d RETURNING *`,
		strings.Join(sets, ", "), argNum)

	var e models.Employee
	if err := db.GetContext(ctx, &e, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	return &e, nil
}

// SetEmployeeStatus performs a lifecycle transition. Employees are never
// hard-deleted — "removal" is this transition to the removed status.
func (db *DB) SetEmployeeStatus(ctx context.Context, id string, status models.EmployeeStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE employees SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("employee not found")
	}
	return nil
}

// ListEmployees returns a paginated, filterable list of employees.
func (db *DB) ListEmployees(ctx context.Context, params models.EmployeeListParams) ([]models.Employee, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	var conditions []string
	var args []interface{}
	argNum := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR matricule ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees %s", whereClause)
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM employees %s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		whereClause, argNum, argNum+1)
	args = append(args, params.PerPage, offset)

	var employees []models.Employee
	if err := db.SelectContext(ctx, &employees, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}

	return employees, total, nil
}

// AllEmployees returns every employee, for the CSV export.
func (db *DB) AllEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := db.SelectContext(ctx, &employees, `SELECT * FROM employees ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}
