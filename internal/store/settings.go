package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/hackutd/harp-sub001/internal/model"
)

const (
	SettingsKeyShortAnswerQuestions    = "short_answer_questions"
	SettingsKeyReviewsPerApplication   = "reviews_per_application"
	SettingsKeyReviewAssignmentEnabled = "review_assignment_enabled"
	SettingsKeyScanTypes               = "scan_types"

	DefaultReviewsPerApplication = 3
)

// DefaultScanTypes is used until a super admin saves a scan type list.
func DefaultScanTypes() []model.ScanType {
	return []model.ScanType{
		{Name: "check_in", DisplayName: "Check In", Category: model.ScanCategoryCheckIn, IsActive: true},
	}
}

type SettingsStore struct {
	db *sql.DB
}

// AssignmentEntry records whether an admin takes part in review assignment.
type AssignmentEntry struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type assignmentEntries []AssignmentEntry

func (e assignmentEntries) lookup(id string) (int, bool) {
	for i, entry := range e {
		if entry.ID == id {
			return i, true
		}
	}
	return -1, false
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getSetting(ctx context.Context, q querier, key string, forUpdate bool) ([]byte, error) {
	query := `SELECT value FROM settings WHERE key = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var value []byte
	if err := q.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func putSetting(ctx context.Context, q querier, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err = q.ExecContext(ctx, query, key, string(data))
	return err
}

// loadAssignmentEntries also accepts the legacy format, a plain array of
// enabled ids.
func loadAssignmentEntries(ctx context.Context, q querier, forUpdate bool) (assignmentEntries, error) {
	value, err := getSetting(ctx, q, SettingsKeyReviewAssignmentEnabled, forUpdate)
	if errors.Is(err, ErrNotFound) {
		return assignmentEntries{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries assignmentEntries
	if err := json.Unmarshal(value, &entries); err == nil {
		return entries, nil
	}
	var ids []string
	if err := json.Unmarshal(value, &ids); err != nil {
		return assignmentEntries{}, nil
	}
	entries = make(assignmentEntries, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, AssignmentEntry{ID: id, Enabled: true})
	}
	return entries, nil
}

func saveAssignmentEntries(ctx context.Context, q querier, entries assignmentEntries) error {
	return putSetting(ctx, q, SettingsKeyReviewAssignmentEnabled, entries)
}

func (s *SettingsStore) GetShortAnswerQuestions(ctx context.Context) ([]model.ShortAnswerQuestion, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	value, err := getSetting(ctx, s.db, SettingsKeyShortAnswerQuestions, false)
	if errors.Is(err, ErrNotFound) {
		return []model.ShortAnswerQuestion{}, nil
	}
	if err != nil {
		return nil, err
	}
	questions := []model.ShortAnswerQuestion{}
	if err := json.Unmarshal(value, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *SettingsStore) UpdateShortAnswerQuestions(ctx context.Context, questions []model.ShortAnswerQuestion) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if questions == nil {
		questions = []model.ShortAnswerQuestion{}
	}
	return putSetting(ctx, s.db, SettingsKeyShortAnswerQuestions, questions)
}

func (s *SettingsStore) GetReviewsPerApplication(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	value, err := getSetting(ctx, s.db, SettingsKeyReviewsPerApplication, false)
	if errors.Is(err, ErrNotFound) {
		return DefaultReviewsPerApplication, nil
	}
	if err != nil {
		return 0, err
	}
	var count int
	if err := json.Unmarshal(value, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SettingsStore) SetReviewsPerApplication(ctx context.Context, value int) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return putSetting(ctx, s.db, SettingsKeyReviewsPerApplication, value)
}

// GetReviewAssignmentEnabled reports whether adminID takes part in review
// assignment. Admins without an entry are not enabled.
func (s *SettingsStore) GetReviewAssignmentEnabled(ctx context.Context, adminID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	entries, err := loadAssignmentEntries(ctx, s.db, false)
	if err != nil {
		return false, err
	}
	if i, ok := entries.lookup(adminID); ok {
		return entries[i].Enabled, nil
	}
	return false, nil
}

func (s *SettingsStore) SetReviewAssignmentEnabled(ctx context.Context, adminID string, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	entries, err := loadAssignmentEntries(ctx, tx, true)
	if err != nil {
		return err
	}
	if i, ok := entries.lookup(adminID); ok {
		entries[i].Enabled = enabled
	} else {
		entries = append(entries, AssignmentEntry{ID: adminID, Enabled: enabled})
	}
	if err := saveAssignmentEntries(ctx, tx, entries); err != nil {
		return err
	}
	return tx.Commit()
}

func loadScanTypes(ctx context.Context, q querier, forUpdate bool) ([]model.ScanType, error) {
	value, err := getSetting(ctx, q, SettingsKeyScanTypes, forUpdate)
	if errors.Is(err, ErrNotFound) {
		return DefaultScanTypes(), nil
	}
	if err != nil {
		return nil, err
	}
	scanTypes := []model.ScanType{}
	if err := json.Unmarshal(value, &scanTypes); err != nil {
		return nil, err
	}
	return scanTypes, nil
}

func (s *SettingsStore) GetScanTypes(ctx context.Context) ([]model.ScanType, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return loadScanTypes(ctx, s.db, false)
}

func (s *SettingsStore) UpdateScanTypes(ctx context.Context, scanTypes []model.ScanType) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if scanTypes == nil {
		scanTypes = []model.ScanType{}
	}
	return putSetting(ctx, s.db, SettingsKeyScanTypes, scanTypes)
}

// SetScanTypeActive switches one scan type on or off and returns it. Unknown
// names are ErrNotFound.
func (s *SettingsStore) SetScanTypeActive(ctx context.Context, name string, active bool) (*model.ScanType, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	scanTypes, err := loadScanTypes(ctx, tx, true)
	if err != nil {
		return nil, err
	}
	for i := range scanTypes {
		if scanTypes[i].Name != name {
			continue
		}
		scanTypes[i].IsActive = active
		if err := putSetting(ctx, tx, SettingsKeyScanTypes, scanTypes); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		updated := scanTypes[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}
