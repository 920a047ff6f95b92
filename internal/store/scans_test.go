package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackutd/harp-sub001/internal/model"
)

const scanUserID = "0b7c9d2e-4f31-4a8e-9c55-2d6e8f1a3b70"

func TestScansCreate(t *testing.T) {
	db, mock := newMock(t)
	scans := &ScansStore{db: db}
	now := time.Now().UTC()

	t.Run("stored", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scans")).
			WithArgs(sqlmock.AnyArg(), scanUserID, "check_in", "admin-1").
			WillReturnRows(sqlmock.NewRows([]string{"scanned_at"}).AddRow(now))

		scan := &model.Scan{UserID: scanUserID, ScanType: "check_in", ScannedBy: "admin-1"}
		require.NoError(t, scans.Create(context.Background(), scan))
		assert.NotEmpty(t, scan.ID)
		assert.Equal(t, now, scan.ScannedAt)
	})

	t.Run("repeat", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scans")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "scans_user_id_scan_type_key"})

		err := scans.Create(context.Background(), &model.Scan{UserID: scanUserID, ScanType: "check_in", ScannedBy: "admin-1"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scans")).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "scans_user_id_fkey"})

		err := scans.Create(context.Background(), &model.Scan{UserID: scanUserID, ScanType: "lunch", ScannedBy: "admin-1"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScansGetByUserIDEmpty(t *testing.T) {
	db, mock := newMock(t)
	scans := &ScansStore{db: db}

	mock.ExpectQuery(regexp.QuoteMeta("FROM scans")).
		WithArgs(scanUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "scan_type", "scanned_by", "scanned_at"}))

	got, err := scans.GetByUserID(context.Background(), scanUserID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScansGetStats(t *testing.T) {
	db, mock := newMock(t)
	scans := &ScansStore{db: db}

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY scan_type")).
		WillReturnRows(sqlmock.NewRows([]string{"scan_type", "count"}).
			AddRow("check_in", 42).
			AddRow("lunch", 30))

	stats, err := scans.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.ScanStat{{ScanType: "check_in", Count: 42}, {ScanType: "lunch", Count: 30}}, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScansHasCheckIn(t *testing.T) {
	db, mock := newMock(t)
	scans := &ScansStore{db: db}

	ok, err := scans.HasCheckIn(context.Background(), scanUserID, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(scanUserID, pq.Array([]string{"check_in"})).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err = scans.HasCheckIn(context.Background(), scanUserID, []string{"check_in"})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsScanTypesDefault(t *testing.T) {
	db, mock := newMock(t)
	settings := &SettingsStore{db: db}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings WHERE key = $1")).
		WithArgs(SettingsKeyScanTypes).
		WillReturnError(sql.ErrNoRows)

	scanTypes, err := settings.GetScanTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultScanTypes(), scanTypes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetScanTypeActive(t *testing.T) {
	db, mock := newMock(t)
	settings := &SettingsStore{db: db}
	stored := []byte(`[{"name":"check_in","display_name":"Check In","category":"check_in","is_active":true},{"name":"lunch","display_name":"Lunch","category":"meal","is_active":true}]`)

	t.Run("known", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings WHERE key = $1 FOR UPDATE")).
			WithArgs(SettingsKeyScanTypes).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(stored))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
			WithArgs(SettingsKeyScanTypes, `[{"name":"check_in","display_name":"Check In","category":"check_in","is_active":true},{"name":"lunch","display_name":"Lunch","category":"meal","is_active":false}]`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		updated, err := settings.SetScanTypeActive(context.Background(), "lunch", false)
		require.NoError(t, err)
		assert.Equal(t, "lunch", updated.Name)
		assert.False(t, updated.IsActive)
	})

	t.Run("unknown", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings WHERE key = $1 FOR UPDATE")).
			WithArgs(SettingsKeyScanTypes).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(stored))
		mock.ExpectRollback()

		_, err := settings.SetScanTypeActive(context.Background(), "dinner", true)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersGetByEmails(t *testing.T) {
	db, mock := newMock(t)
	users := &UsersStore{db: db}
	now := time.Now().UTC()

	got, err := users.GetByEmails(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = ANY($1)")).
		WithArgs(pq.Array([]string{"ada@example.com", "nobody@example.com"})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identity_id", "email", "role", "auth_method", "profile_picture_url", "created_at", "updated_at"}).
			AddRow("user-1", "st-1", "Ada@example.com", "hacker", "google", nil, now, now))

	got, err = users.GetByEmails(context.Background(), []string{"ADA@example.com ", "nobody@example.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "user-1", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
