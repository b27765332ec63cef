package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var weeklyBlockRowColumns = []string{"id", "technician_id", "day_of_week", "block_name", "start_time", "end_time", "is_available", "created_at", "updated_at"}

func TestWeeklyBlockRepositoryListByTechnicianAndDay(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewWeeklyBlockRepository(db)

	rows := sqlmock.NewRows(weeklyBlockRowColumns).
		AddRow("b1", "tech-1", 2, "Morning", "09:00:00", "12:00:00", true, time.Now(), time.Now()).
		AddRow("b2", "tech-1", 2, "Afternoon", "13:00:00", "17:00:00", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM weekly_blocks WHERE technician_id = $1 AND day_of_week = $2 ORDER BY start_time ASC")).
		WithArgs("tech-1", 2).
		WillReturnRows(rows)

	blocks, err := repo.ListByTechnicianAndDay(context.Background(), "tech-1", 2)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, models.NewTimeOfDay(9, 0), blocks[0].StartTime)
	assert.Equal(t, models.NewTimeOfDay(17, 0), blocks[1].EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyBlockRepositoryReplaceUnderTechnicianLock(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewWeeklyBlockRepository(db)
	manager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("tech-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_blocks WHERE technician_id = $1")).
		WithArgs("tech-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO weekly_blocks").
		WithArgs(sqlmock.AnyArg(), "tech-1", 1, "Morning", "08:00:00", "12:00:00", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	blocks := []models.WeeklyBlock{{DayOfWeek: 1, BlockName: "Morning", StartTime: models.NewTimeOfDay(8, 0), EndTime: models.NewTimeOfDay(12, 0), IsAvailable: true}}
	err := manager.WithTechnicianLock(context.Background(), "tech-1", func(ctx context.Context, tx *sqlx.Tx) error {
		return repo.ReplaceWithTx(ctx, tx, "tech-1", blocks)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, blocks[0].ID)
	assert.Equal(t, "tech-1", blocks[0].TechnicianID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyBlockRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewWeeklyBlockRepository(db)
	manager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM weekly_blocks").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO weekly_blocks").WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	blocks := []models.WeeklyBlock{{DayOfWeek: 1, StartTime: models.NewTimeOfDay(8, 0), EndTime: models.NewTimeOfDay(12, 0), IsAvailable: true}}
	err := manager.WithTechnicianLock(context.Background(), "tech-1", func(ctx context.Context, tx *sqlx.Tx) error {
		return repo.ReplaceWithTx(ctx, tx, "tech-1", blocks)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert weekly block")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyBlockRepositoryReplaceWithEmptyScheduleClears(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewWeeklyBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM weekly_blocks").WithArgs("tech-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceWithTx(context.Background(), tx, "tech-1", nil))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyBlockRepositoryReplaceRequiresTx(t *testing.T) {
	db, _ := newRepoMock(t)
	repo := NewWeeklyBlockRepository(db)

	assert.Error(t, repo.ReplaceWithTx(context.Background(), nil, "tech-1", nil))
}
