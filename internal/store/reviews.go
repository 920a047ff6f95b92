package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hackutd/harp-sub001/internal/model"
)

type ReviewNote struct {
	AdminID    string    `json:"admin_id"`
	AdminEmail string    `json:"admin_email"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

type BatchAssignmentResult struct {
	ReviewsCreated int `json:"reviews_created"`
}

type ReviewsStore struct {
	db *sql.DB
}

const reviewColumns = `id, application_id, admin_id, vote, notes, assigned_at, reviewed_at`

func scanReview(row rowScanner) (*model.Review, error) {
	var review model.Review
	err := row.Scan(
		&review.ID, &review.ApplicationID, &review.AdminID,
		&review.Vote, &review.Notes,
		&review.AssignedAt, &review.ReviewedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// SubmitVote records adminID's vote on a review assigned to them.
func (s *ReviewsStore) SubmitVote(ctx context.Context, reviewID, adminID string, vote model.ReviewVote, notes *string) (*model.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		UPDATE application_reviews
		SET vote = $3, notes = $4, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND admin_id = $2
		RETURNING ` + reviewColumns
	return scanReview(s.db.QueryRowContext(ctx, query, reviewID, adminID, vote, notes))
}

func (s *ReviewsStore) GetPendingByAdminID(ctx context.Context, adminID string) ([]model.ReviewWithApplicant, error) {
	return s.listByAdmin(ctx, adminID, `ar.vote IS NULL`, `ar.assigned_at ASC`)
}

func (s *ReviewsStore) GetCompletedByAdminID(ctx context.Context, adminID string) ([]model.ReviewWithApplicant, error) {
	return s.listByAdmin(ctx, adminID, `ar.vote IS NOT NULL`, `ar.reviewed_at DESC`)
}

func (s *ReviewsStore) listByAdmin(ctx context.Context, adminID, filter, order string) ([]model.ReviewWithApplicant, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT
			ar.id, ar.application_id, ar.admin_id, ar.vote, ar.notes,
			ar.assigned_at, ar.reviewed_at,
			a.first_name, a.last_name, u.email, a.university, a.major
		FROM application_reviews ar
		JOIN applications a ON ar.application_id = a.id
		JOIN users u ON a.user_id = u.id
		WHERE ar.admin_id = $1 AND ` + filter + `
		ORDER BY ` + order

	rows, err := s.db.QueryContext(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []model.ReviewWithApplicant{}
	for rows.Next() {
		var review model.ReviewWithApplicant
		if err := rows.Scan(
			&review.ID, &review.ApplicationID, &review.AdminID,
			&review.Vote, &review.Notes,
			&review.AssignedAt, &review.ReviewedAt,
			&review.FirstName, &review.LastName, &review.Email,
			&review.University, &review.Major,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// GetNotesByApplicationID returns non-empty notes without the votes.
func (s *ReviewsStore) GetNotesByApplicationID(ctx context.Context, applicationID string) ([]ReviewNote, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT ar.admin_id, u.email, ar.notes, ar.created_at
		FROM application_reviews ar
		JOIN users u ON ar.admin_id = u.id
		WHERE ar.application_id = $1 AND ar.notes IS NOT NULL AND ar.notes != ''
		ORDER BY ar.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []ReviewNote{}
	for rows.Next() {
		var note ReviewNote
		if err := rows.Scan(&note.AdminID, &note.AdminEmail, &note.Notes, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

// AssignNextForAdmin assigns the submitted application with the fewest
// reviews, oldest first, skipping the admin's own application and ones they
// already hold. ErrNotFound means nothing needs review.
func (s *ReviewsStore) AssignNextForAdmin(ctx context.Context, adminID string, reviewsPerApp int) (*model.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	findQuery := `
		SELECT id FROM applications
		WHERE status = 'submitted'
		  AND reviews_assigned < $1
		  AND user_id != $2
		  AND NOT EXISTS (
		      SELECT 1 FROM application_reviews ar
		      WHERE ar.application_id = applications.id AND ar.admin_id = $2
		  )
		ORDER BY reviews_assigned ASC, submitted_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	var applicationID string
	if err := tx.QueryRowContext(ctx, findQuery, reviewsPerApp, adminID).Scan(&applicationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	insertQuery := `
		INSERT INTO application_reviews (id, application_id, admin_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id, admin_id) DO NOTHING
		RETURNING ` + reviewColumns
	review, err := scanReview(tx.QueryRowContext(ctx, insertQuery, uuid.NewString(), applicationID, adminID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return review, nil
}

// BatchAssign tops up every submitted application to reviewsPerApp reviews.
// Admins missing from the assignment setting are added to it first, and
// pending reviews held by disabled admins are released for redistribution.
func (s *ReviewsStore) BatchAssign(ctx context.Context, reviewsPerApp int) (*BatchAssignmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration*2)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	roles, order, err := loadAdminRoles(ctx, tx)
	if err != nil {
		return nil, err
	}

	entries, err := loadAssignmentEntries(ctx, tx, true)
	if err != nil {
		return nil, err
	}
	changed := false
	for _, id := range order {
		if _, ok := entries.lookup(id); !ok {
			entries = append(entries, AssignmentEntry{ID: id, Enabled: roles[id] == model.RoleAdmin})
			changed = true
		}
	}
	if changed {
		if err := saveAssignmentEntries(ctx, tx, entries); err != nil {
			return nil, err
		}
	}

	disabled := make(map[string]bool)
	var disabledIDs []string
	for _, entry := range entries {
		if !entry.Enabled {
			disabled[entry.ID] = true
			disabledIDs = append(disabledIDs, entry.ID)
		}
	}
	if len(disabledIDs) > 0 {
		cleanup := `DELETE FROM application_reviews WHERE vote IS NULL AND admin_id::text = ANY($1)`
		if _, err := tx.ExecContext(ctx, cleanup, pq.Array(disabledIDs)); err != nil {
			return nil, err
		}
	}

	admins, err := loadAdminLoads(ctx, tx, disabled)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return &BatchAssignmentResult{}, tx.Commit()
	}

	apps, err := loadAppNeeds(ctx, tx, reviewsPerApp)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return &BatchAssignmentResult{}, tx.Commit()
	}

	insertQuery := `
		INSERT INTO application_reviews (id, application_id, admin_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id, admin_id) DO NOTHING
	`
	created := 0
	for _, assignment := range PlanAssignments(apps, admins, reviewsPerApp) {
		result, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), assignment.ApplicationID, assignment.AdminID)
		if err != nil {
			return nil, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		created += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &BatchAssignmentResult{ReviewsCreated: created}, nil
}

func loadAdminRoles(ctx context.Context, tx *sql.Tx) (map[string]model.UserRole, []string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, role FROM users
		WHERE role IN ('admin', 'super_admin')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	roles := make(map[string]model.UserRole)
	var order []string
	for rows.Next() {
		var (
			id   string
			role model.UserRole
		)
		if err := rows.Scan(&id, &role); err != nil {
			return nil, nil, err
		}
		roles[id] = role
		order = append(order, id)
	}
	return roles, order, rows.Err()
}

func loadAdminLoads(ctx context.Context, tx *sql.Tx, disabled map[string]bool) ([]AdminLoad, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT u.id, COUNT(ar.id)
		FROM users u
		LEFT JOIN application_reviews ar ON ar.admin_id = u.id AND ar.vote IS NULL
		WHERE u.role IN ('admin', 'super_admin')
		GROUP BY u.id, u.created_at
		ORDER BY COUNT(ar.id) ASC, u.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []AdminLoad
	for rows.Next() {
		var admin AdminLoad
		if err := rows.Scan(&admin.ID, &admin.Pending); err != nil {
			return nil, err
		}
		if !disabled[admin.ID] {
			admins = append(admins, admin)
		}
	}
	return admins, rows.Err()
}

func loadAppNeeds(ctx context.Context, tx *sql.Tx, reviewsPerApp int) ([]AppNeed, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.reviews_assigned,
		       COALESCE(array_agg(ar.admin_id::text) FILTER (WHERE ar.admin_id IS NOT NULL), '{}')
		FROM applications a
		LEFT JOIN application_reviews ar ON ar.application_id = a.id
		WHERE a.status = 'submitted' AND a.reviews_assigned < $1
		GROUP BY a.id
		ORDER BY a.reviews_assigned ASC, a.submitted_at ASC
	`, reviewsPerApp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []AppNeed
	for rows.Next() {
		var app AppNeed
		if err := rows.Scan(&app.ID, &app.UserID, &app.ReviewsAssigned, pq.Array(&app.AssignedTo)); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
