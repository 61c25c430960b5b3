// links.go — persistence for download links. The redemption state machine
// lives in services/links; this file only stores and loads its snapshots.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/payflow/payflow-api/internal/models"
)

// CreateDownloadLink persists a freshly issued link.
func (db *DB) CreateDownloadLink(ctx context.Context, l *models.DownloadLink) error {
	query := `
		INSERT INTO download_links (token, employee_id, treatment_id, filename, file_path,
			matricule_required, attempts, max_attempts, downloads, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		l.Token, l.EmployeeID, l.TreatmentID, l.Filename, l.FilePath,
		l.MatriculeRequired, l.Attempts, l.MaxAttempts, l.Downloads, l.Status, l.ExpiresAt,
	).Scan(&l.ID, &l.CreatedAt)
}

// GetLinkByToken looks up a link by its full opaque token.
// Returns (nil, nil) when no link carries the token — an unknown token is an
// expected condition at the public endpoint, not a server error.
func (db *DB) GetLinkByToken(ctx context.Context, token string) (*models.DownloadLink, error) {
	var l models.DownloadLink
	err := db.GetContext(ctx, &l, `SELECT * FROM download_links WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("link lookup failed: %w", err)
	}
	return &l, nil
}

// GetLink retrieves a link by ID for the admin surface.
func (db *DB) GetLink(ctx context.Context, id string) (*models.DownloadLink, error) {
	var l models.DownloadLink
	err := db.GetContext(ctx, &l, `SELECT * FROM download_links WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("link not found: %w", err)
	}
	return &l, nil
}

// SpendVerifyAttempt spends one attempt on a link, with the budget guard
// re-checked inside the UPDATE so two concurrent verify calls can never
// overspend it. When granted it also counts a download. Returns false when
// the guard rejected the row: the link was revoked, expired or out of
// attempts by the time the write ran. On success the authoritative counters
// are scanned back into l.
func (db *DB) SpendVerifyAttempt(ctx context.Context, l *models.DownloadLink, granted bool) (bool, error) {
	err := db.QueryRowContext(ctx, `
		UPDATE download_links
		SET attempts = attempts + 1,
			downloads = downloads + CASE WHEN $2 THEN 1 ELSE 0 END,
			last_client_ip = $3,
			first_access_at = COALESCE(first_access_at, $4),
			last_access_at = $4
		WHERE id = $1 AND status = $5 AND attempts < max_attempts AND expires_at > $4
		RETURNING attempts, downloads, first_access_at`,
		l.ID, granted, l.LastClientIP, l.LastAccessAt, models.LinkActive,
	).Scan(&l.Attempts, &l.Downloads, &l.FirstAccessAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to spend verify attempt: %w", err)
	}
	return true, nil
}

// RevokeLink flips a link to revoked. Idempotent.
func (db *DB) RevokeLink(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE download_links SET status = $2 WHERE id = $1`,
		id, models.LinkRevoked)
	if err != nil {
		return fmt.Errorf("failed to revoke link: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("link not found")
	}
	return nil
}

// ListLinks returns links, optionally filtered by treatment or employee,
// newest first.
func (db *DB) ListLinks(ctx context.Context, treatmentID, employeeID string, page, perPage int) ([]models.DownloadLink, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	// Go Pattern: build the WHERE clause dynamically, keeping placeholders
	// numbered so the args line up for both the count and the page query.
	where := ""
	args := []interface{}{}
	if treatmentID != "" {
		args = append(args, treatmentID)
		where = fmt.Sprintf("WHERE treatment_id = $%d", len(args))
	}
	if employeeID != "" {
		args = append(args, employeeID)
		clause := fmt.Sprintf("employee_id = $%d", len(args))
		if where == "" {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM download_links `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT * FROM download_links %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var links []models.DownloadLink
	if err := db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}

	return links, total, nil
}

// LinksForTreatment returns every link issued by one run, for the detail view.
func (db *DB) LinksForTreatment(ctx context.Context, treatmentID string) ([]models.DownloadLink, error) {
	var links []models.DownloadLink
	err := db.SelectContext(ctx, &links,
		`SELECT * FROM download_links WHERE treatment_id = $1 ORDER BY created_at`,
		treatmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list treatment links: %w", err)
	}
	return links, nil
}

// CountExpiredActiveLinks counts links past their expiry that are still
// flagged active — the population the cleanup pass would revoke.
func (db *DB) CountExpiredActiveLinks(ctx context.Context) (int, error) {
	var n int
	err := db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM download_links WHERE status = $1 AND expires_at < NOW()`,
		models.LinkActive)
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// RevokeExpiredLinks flips every expired-but-active link to revoked and
// returns how many were affected.
func (db *DB) RevokeExpiredLinks(ctx context.Context) (int, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE download_links SET status = $1 WHERE status = $2 AND expires_at < NOW()`,
		models.LinkRevoked, models.LinkActive)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke expired links: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
