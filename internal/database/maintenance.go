// maintenance.go — aggregate counts for the maintenance stats endpoint.
package database

import (
	"context"
	"fmt"
)

// TableCounts returns the row counts the stats endpoint reports.
func (db *DB) TableCounts(ctx context.Context) (employees, treatments, links int, err error) {
	if err = db.GetContext(ctx, &employees, `SELECT COUNT(*) FROM employees WHERE status != 'removed'`); err != nil {
		return 0, 0, 0, fmt.Errorf("employee count failed: %w", err)
	}
	if err = db.GetContext(ctx, &treatments, `SELECT COUNT(*) FROM treatments`); err != nil {
		return 0, 0, 0, fmt.Errorf("treatment count failed: %w", err)
	}
	if err = db.GetContext(ctx, &links, `SELECT COUNT(*) FROM download_links`); err != nil {
		return 0, 0, 0, fmt.Errorf("link count failed: %w", err)
	}
	return employees, treatments, links, nil
}
