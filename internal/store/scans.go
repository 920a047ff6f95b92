package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hackutd/harp-sub001/internal/model"
)

type ScansStore struct {
	db *sql.DB
}

// Create records scan. A repeated (user, scan type) pair is ErrConflict and an
// unknown user is ErrNotFound.
func (s *ScansStore) Create(ctx context.Context, scan *model.Scan) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	query := `
		INSERT INTO scans (id, user_id, scan_type, scanned_by)
		VALUES ($1, $2, $3, $4)
		RETURNING scanned_at
	`
	err := s.db.QueryRowContext(ctx, query, scan.ID, scan.UserID, scan.ScanType, scan.ScannedBy).Scan(&scan.ScannedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrConflict
	case isForeignKeyViolation(err):
		return ErrNotFound
	default:
		return err
	}
}

func (s *ScansStore) GetByUserID(ctx context.Context, userID string) ([]model.Scan, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT id, user_id, scan_type, scanned_by, scanned_at
		FROM scans
		WHERE user_id = $1
		ORDER BY scanned_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []model.Scan{}
	for rows.Next() {
		var scan model.Scan
		if err := rows.Scan(&scan.ID, &scan.UserID, &scan.ScanType, &scan.ScannedBy, &scan.ScannedAt); err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// GetStats counts scans per scan type, ordered by name.
func (s *ScansStore) GetStats(ctx context.Context) ([]model.ScanStat, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT scan_type, COUNT(*)
		FROM scans
		GROUP BY scan_type
		ORDER BY scan_type
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.ScanStat{}
	for rows.Next() {
		var stat model.ScanStat
		if err := rows.Scan(&stat.ScanType, &stat.Count); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *ScansStore) HasCheckIn(ctx context.Context, userID string, checkInTypes []string) (bool, error) {
	if len(checkInTypes) == 0 {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM scans WHERE user_id = $1 AND scan_type = ANY($2))`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, pq.Array(checkInTypes)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
