package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

var progressColumnNames = []string{
	"user_id", "total_meals_saved", "total_co2_saved_grams", "total_money_saved",
	"total_water_saved_liters", "experience_points", "current_streak", "longest_streak", "level",
	"last_purchase_at", "version", "created_at", "updated_at",
}

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresRepository{db: db}, mock
}

func progressArgs(version int64) []driver.Value {
	args := []driver.Value{"u-1"}
	for range 9 {
		args = append(args, sqlmock.AnyArg())
	}
	if version > 0 {
		args = append(args, version)
	}
	return args
}

func TestPostgresRepository_SaveUserProgressUpdates(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applied_purchases").
		WithArgs("p-2", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE user_progress SET").
		WithArgs(progressArgs(3)...).
		WillReturnRows(sqlmock.NewRows(progressColumnNames).
			AddRow("u-1", int64(5), int64(12500), int64(400), int64(5000), int64(50), int64(2), int64(2), int64(1), now, int64(4), now, now))
	mock.ExpectExec("UPDATE purchases SET status").
		WithArgs(models.StatusProcessed, "p-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stored, err := repo.SaveUserProgress(context.Background(), &models.UserProgress{
		UserID:          "u-1",
		TotalMealsSaved: 5,
		CurrentStreak:   2,
		LongestStreak:   2,
		Level:           1,
		LastPurchaseAt:  &now,
		Version:         3,
	}, "p-2")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Version)
	assert.Equal(t, int64(5), stored.TotalMealsSaved)
	require.NotNil(t, stored.LastPurchaseAt)
	assert.Equal(t, now, *stored.LastPurchaseAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveUserProgressVersionConflict(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applied_purchases").
		WithArgs("p-2", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE user_progress SET").
		WithArgs(progressArgs(3)...).
		WillReturnRows(sqlmock.NewRows(progressColumnNames))
	mock.ExpectRollback()

	stored, err := repo.SaveUserProgress(context.Background(), &models.UserProgress{UserID: "u-1", Version: 3}, "p-2")
	assert.Nil(t, stored)
	assert.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveUserProgressFirstInsertLosesRace(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applied_purchases").
		WithArgs("p-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO user_progress .* ON CONFLICT \\(user_id\\) DO NOTHING").
		WithArgs(progressArgs(0)...).
		WillReturnRows(sqlmock.NewRows(progressColumnNames))
	mock.ExpectRollback()

	_, err := repo.SaveUserProgress(context.Background(), &models.UserProgress{UserID: "u-1", TotalMealsSaved: 1}, "p-1")
	assert.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveUserProgressAlreadyApplied(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applied_purchases").
		WithArgs("p-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.SaveUserProgress(context.Background(), &models.UserProgress{UserID: "u-1", Version: 1}, "p-1")
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveUserProgressWithoutPurchase(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO user_progress").
		WithArgs(progressArgs(0)...).
		WillReturnRows(sqlmock.NewRows(progressColumnNames).
			AddRow("u-1", int64(1), int64(2500), int64(100), int64(1000), int64(10), int64(1), int64(1), int64(1), nil, int64(1), now, now))
	mock.ExpectCommit()

	stored, err := repo.SaveUserProgress(context.Background(), &models.UserProgress{UserID: "u-1", TotalMealsSaved: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Nil(t, stored.LastPurchaseAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetUserProgressMissing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT .* FROM user_progress WHERE user_id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(progressColumnNames))

	p, err := repo.GetUserProgress(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, mock.ExpectationsWereMet())
}
