package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hackutd/harp-sub001/internal/model"
)

type UsersStore struct {
	db *sql.DB
}

const userColumns = `id, identity_id, email, role, auth_method, profile_picture_url, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.IdentityID,
		&user.Email,
		&user.Role,
		&user.AuthMethod,
		&user.ProfilePictureURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) GetByIdentityID(ctx context.Context, identityID string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE identity_id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, identityID))
}

func (s *UsersStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetByEmails looks users up by email, ignoring case. Emails with no user are
// simply absent from the result.
func (s *UsersStore) GetByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	if len(emails) == 0 {
		return []model.User{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	lowered := make([]string, 0, len(emails))
	for _, email := range emails {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(email)))
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = ANY($1) ORDER BY email`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(lowered))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// Create inserts user. Admins and super admins also get an entry in the
// review assignment setting, enabled for admins only.
func (s *UsersStore) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, identity_id, email, role, auth_method, profile_picture_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		user.ID,
		user.IdentityID,
		user.Email,
		user.Role,
		user.AuthMethod,
		user.ProfilePictureURL,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	if user.Role == model.RoleAdmin || user.Role == model.RoleSuperAdmin {
		entries, err := loadAssignmentEntries(ctx, tx, true)
		if err != nil {
			return err
		}
		if _, ok := entries.lookup(user.ID); !ok {
			entries = append(entries, AssignmentEntry{ID: user.ID, Enabled: user.Role == model.RoleAdmin})
			if err := saveAssignmentEntries(ctx, tx, entries); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *UsersStore) UpdateProfilePicture(ctx context.Context, identityID string, pictureURL *string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		UPDATE users
		SET profile_picture_url = $1, updated_at = NOW()
		WHERE identity_id = $2
	`
	result, err := s.db.ExecContext(ctx, query, pictureURL, identityID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
