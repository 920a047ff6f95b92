package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hackutd/harp-sub001/internal/model"
)

type PaginationDirection string

const (
	DirectionForward  PaginationDirection = "forward"
	DirectionBackward PaginationDirection = "backward"

	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

type ApplicationCursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

func EncodeCursor(createdAt time.Time, id string) string {
	data, _ := json.Marshal(ApplicationCursor{CreatedAt: createdAt, ID: id})
	return base64.URLEncoding.EncodeToString(data)
}

func DecodeCursor(encoded string) (*ApplicationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("invalid cursor encoding")
	}
	var cursor ApplicationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, errors.New("invalid cursor format")
	}
	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return nil, errors.New("invalid cursor: missing fields")
	}
	if _, err := uuid.Parse(cursor.ID); err != nil {
		return nil, errors.New("invalid cursor id")
	}
	return &cursor, nil
}

type ApplicationListFilters struct {
	Status *model.ApplicationStatus
}

type ApplicationListItem struct {
	ID          string                  `json:"id"`
	UserID      string                  `json:"user_id"`
	Email       string                  `json:"email"`
	Status      model.ApplicationStatus `json:"status"`
	FirstName   *string                 `json:"first_name"`
	LastName    *string                 `json:"last_name"`
	University  *string                 `json:"university"`
	SubmittedAt *time.Time              `json:"submitted_at"`
	CreatedAt   time.Time               `json:"created_at"`
}

type ApplicationListResult struct {
	Applications []ApplicationListItem `json:"applications"`
	NextCursor   *string               `json:"next_cursor,omitempty"`
	PrevCursor   *string               `json:"prev_cursor,omitempty"`
	HasMore      bool                  `json:"has_more"`
}

type ApplicationStats struct {
	Total      int `json:"total"`
	Draft      int `json:"draft"`
	Submitted  int `json:"submitted"`
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Waitlisted int `json:"waitlisted"`
}

type UserEmailInfo struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
}

type ApplicationsStore struct {
	db *sql.DB
}

const applicationColumns = `
	a.id, a.user_id, u.email, a.status,
	a.first_name, a.last_name, a.phone_e164, a.age,
	a.country_of_residence, a.gender, a.race, a.ethnicity,
	a.university, a.major, a.level_of_study,
	a.short_answer_responses,
	a.hackathons_attended_count, a.software_experience_level, a.heard_about,
	a.shirt_size, a.dietary_restrictions, a.accommodations,
	a.github, a.linkedin, a.website,
	a.ack_application, a.ack_mlh_coc, a.ack_mlh_privacy, a.opt_in_mlh_emails,
	a.submitted_at, a.created_at, a.updated_at`

func scanApplication(row rowScanner) (*model.Application, error) {
	var (
		app       model.Application
		responses []byte
	)
	err := row.Scan(
		&app.ID, &app.UserID, &app.Email, &app.Status,
		&app.FirstName, &app.LastName, &app.PhoneE164, &app.Age,
		&app.CountryOfResidence, &app.Gender, &app.Race, &app.Ethnicity,
		&app.University, &app.Major, &app.LevelOfStudy,
		&responses,
		&app.HackathonsAttendedCount, &app.SoftwareExperienceLevel, &app.HeardAbout,
		&app.ShirtSize, pq.Array(&app.DietaryRestrictions), &app.Accommodations,
		&app.Github, &app.LinkedIn, &app.Website,
		&app.AckApplication, &app.AckMLHCOC, &app.AckMLHPrivacy, &app.OptInMLHEmails,
		&app.SubmittedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	app.ShortAnswerResponses = model.ShortAnswerResponses{}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &app.ShortAnswerResponses); err != nil {
			return nil, fmt.Errorf("decode short answer responses: %w", err)
		}
	}
	return &app, nil
}

func (s *ApplicationsStore) GetByID(ctx context.Context, id string) (*model.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + applicationColumns + `
		FROM applications a
		JOIN users u ON a.user_id = u.id
		WHERE a.id = $1`
	return scanApplication(s.db.QueryRowContext(ctx, query, id))
}

func (s *ApplicationsStore) GetByUserID(ctx context.Context, userID string) (*model.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + applicationColumns + `
		FROM applications a
		JOIN users u ON a.user_id = u.id
		WHERE a.user_id = $1`
	return scanApplication(s.db.QueryRowContext(ctx, query, userID))
}

// Create inserts an empty draft for app.UserID.
func (s *ApplicationsStore) Create(ctx context.Context, app *model.Application) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	query := `
		INSERT INTO applications (id, user_id)
		VALUES ($1, $2)
		RETURNING status, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, app.ID, app.UserID).Scan(&app.Status, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	app.ShortAnswerResponses = model.ShortAnswerResponses{}
	app.DietaryRestrictions = []string{}
	return nil
}

// Update writes every answer field of a draft. Non-draft rows are left alone
// and reported as ErrConflict.
func (s *ApplicationsStore) Update(ctx context.Context, app *model.Application) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	responses := app.ShortAnswerResponses
	if responses == nil {
		responses = model.ShortAnswerResponses{}
	}
	responsesJSON, err := json.Marshal(responses)
	if err != nil {
		return err
	}
	dietary := app.DietaryRestrictions
	if dietary == nil {
		dietary = []string{}
	}

	query := `
		UPDATE applications SET
			first_name = $2,
			last_name = $3,
			phone_e164 = $4,
			age = $5,
			country_of_residence = $6,
			gender = $7,
			race = $8,
			ethnicity = $9,
			university = $10,
			major = $11,
			level_of_study = $12,
			short_answer_responses = $13,
			hackathons_attended_count = $14,
			software_experience_level = $15,
			heard_about = $16,
			shirt_size = $17,
			dietary_restrictions = $18,
			accommodations = $19,
			github = $20,
			linkedin = $21,
			website = $22,
			ack_application = $23,
			ack_mlh_coc = $24,
			ack_mlh_privacy = $25,
			opt_in_mlh_emails = $26,
			updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		app.ID,
		app.FirstName, app.LastName, app.PhoneE164, app.Age,
		app.CountryOfResidence, app.Gender, app.Race, app.Ethnicity,
		app.University, app.Major, app.LevelOfStudy,
		string(responsesJSON),
		app.HackathonsAttendedCount, app.SoftwareExperienceLevel, app.HeardAbout,
		app.ShirtSize, pq.Array(dietary), app.Accommodations,
		app.Github, app.LinkedIn, app.Website,
		app.AckApplication, app.AckMLHCOC, app.AckMLHPrivacy, app.OptInMLHEmails,
	).Scan(&app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Submit moves a draft to submitted. Anything else is ErrConflict.
func (s *ApplicationsStore) Submit(ctx context.Context, app *model.Application) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		UPDATE applications
		SET status = 'submitted', submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING status, submitted_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, app.ID).Scan(&app.Status, &app.SubmittedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// SetStatus records a decision on a submitted application. The caller checks
// the transition; the WHERE clause only guards against racing writers.
func (s *ApplicationsStore) SetStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (*model.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		UPDATE applications
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := s.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrConflict
	}
	return s.GetByID(ctx, id)
}

// List pages through applications newest first. Backward pages walk towards
// newer rows and are returned in the same newest-first order.
func (s *ApplicationsStore) List(
	ctx context.Context,
	filters ApplicationListFilters,
	cursor *ApplicationCursor,
	direction PaginationDirection,
	limit int,
) (*ApplicationListResult, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var (
		cursorTime *time.Time
		cursorID   *string
	)
	if cursor != nil {
		cursorTime = &cursor.CreatedAt
		cursorID = &cursor.ID
	}

	var query string
	if direction == DirectionBackward && cursor != nil {
		query = `
			SELECT a.id, a.user_id, u.email, a.status,
			       a.first_name, a.last_name, a.university,
			       a.submitted_at, a.created_at
			FROM applications a
			INNER JOIN users u ON a.user_id = u.id
			WHERE ($1::application_status IS NULL OR a.status = $1)
			  AND (a.created_at, a.id) > ($2, $3::uuid)
			ORDER BY a.created_at ASC, a.id ASC
			LIMIT $4`
	} else {
		query = `
			SELECT a.id, a.user_id, u.email, a.status,
			       a.first_name, a.last_name, a.university,
			       a.submitted_at, a.created_at
			FROM applications a
			INNER JOIN users u ON a.user_id = u.id
			WHERE ($1::application_status IS NULL OR a.status = $1)
			  AND ($2::timestamptz IS NULL OR (a.created_at, a.id) < ($2, $3::uuid))
			ORDER BY a.created_at DESC, a.id DESC
			LIMIT $4`
	}

	var statusParam any
	if filters.Status != nil {
		statusParam = string(*filters.Status)
	}

	rows, err := s.db.QueryContext(ctx, query, statusParam, cursorTime, cursorID, limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ApplicationListItem, 0, limit)
	for rows.Next() {
		var item ApplicationListItem
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Email, &item.Status,
			&item.FirstName, &item.LastName, &item.University,
			&item.SubmittedAt, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	backward := direction == DirectionBackward && cursor != nil
	if backward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	result := &ApplicationListResult{Applications: items, HasMore: hasMore}
	if len(items) == 0 {
		return result, nil
	}
	first, last := items[0], items[len(items)-1]
	if backward {
		next := EncodeCursor(last.CreatedAt, last.ID)
		result.NextCursor = &next
		if hasMore {
			prev := EncodeCursor(first.CreatedAt, first.ID)
			result.PrevCursor = &prev
		}
		return result, nil
	}
	if hasMore {
		next := EncodeCursor(last.CreatedAt, last.ID)
		result.NextCursor = &next
	}
	if cursor != nil {
		prev := EncodeCursor(first.CreatedAt, first.ID)
		result.PrevCursor = &prev
	}
	return result, nil
}

func (s *ApplicationsStore) GetStats(ctx context.Context) (*ApplicationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT status, COUNT(*) FROM applications GROUP BY status`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats ApplicationStats
	for rows.Next() {
		var (
			status model.ApplicationStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case model.StatusDraft:
			stats.Draft = count
		case model.StatusSubmitted:
			stats.Submitted = count
		case model.StatusAccepted:
			stats.Accepted = count
		case model.StatusRejected:
			stats.Rejected = count
		case model.StatusWaitlisted:
			stats.Waitlisted = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *ApplicationsStore) GetEmailsByStatus(ctx context.Context, status model.ApplicationStatus) ([]UserEmailInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT u.id, u.email, a.first_name
		FROM applications a
		JOIN users u ON a.user_id = u.id
		WHERE a.status = $1
		ORDER BY a.submitted_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []UserEmailInfo{}
	for rows.Next() {
		var info UserEmailInfo
		if err := rows.Scan(&info.UserID, &info.Email, &info.FirstName); err != nil {
			return nil, err
		}
		users = append(users, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
