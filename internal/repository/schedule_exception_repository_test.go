package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

var exceptionRowColumns = []string{"id", "technician_id", "date", "start_time", "end_time", "is_available", "reason", "created_at", "updated_at"}

func TestScheduleExceptionRepositoryListByDateRange(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleExceptionRepository(db)

	rows := sqlmock.NewRows(exceptionRowColumns).
		AddRow("ex-1", "tech-1", "2025-07-04", nil, nil, false, "Holiday", time.Now(), time.Now()).
		AddRow("ex-2", "tech-1", "2025-07-05", "10:00:00", "14:00:00", true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_exceptions WHERE technician_id = $1 AND date BETWEEN $2 AND $3")).
		WithArgs("tech-1", "2025-07-04", "2025-07-05").
		WillReturnRows(rows)

	list, err := repo.ListByDateRange(context.Background(), "tech-1", models.MustParseDate("2025-07-04"), models.MustParseDate("2025-07-05"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].StartTime)
	require.NotNil(t, list[0].Reason)
	assert.Equal(t, "Holiday", *list[0].Reason)
	require.NotNil(t, list[1].StartTime)
	assert.Equal(t, "10:00", list[1].StartTime.String())
	assert.Equal(t, "2025-07-05", list[1].Date.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionRepositoryListByTechnicianWithBounds(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleExceptionRepository(db)

	from := models.MustParseDate("2025-07-01")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE technician_id = $1 AND date >= $2 ORDER BY date ASC")).
		WithArgs("tech-1", "2025-07-01").
		WillReturnRows(sqlmock.NewRows(exceptionRowColumns))

	list, err := repo.ListByTechnician(context.Background(), "tech-1", models.ExceptionFilter{From: &from})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionRepositoryInsertWithTx(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleExceptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schedule_exceptions").
		WithArgs(sqlmock.AnyArg(), "tech-1", "2025-07-04", nil, nil, false, "Vacation", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedule_exceptions").
		WithArgs(sqlmock.AnyArg(), "tech-1", "2025-07-05", nil, nil, false, "Vacation", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reason := "Vacation"
	rows := []models.ScheduleException{
		{TechnicianID: "tech-1", Date: models.MustParseDate("2025-07-04"), Reason: &reason},
		{TechnicianID: "tech-1", Date: models.MustParseDate("2025-07-05"), Reason: &reason},
	}

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.InsertWithTx(context.Background(), tx, rows))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, rows[0].ID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionRepositoryDeleteByIDsIsScoped(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleExceptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_exceptions WHERE technician_id = $1 AND id = ANY($2)")).
		WithArgs("tech-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteByIDs(context.Background(), "tech-1", []string{"ex-1", "ex-of-someone-else"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteByIDs(context.Background(), "tech-1", nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionRepositoryFindByIDs(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleExceptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE technician_id = $1 AND id = ANY($2)")).
		WithArgs("tech-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(exceptionRowColumns).
			AddRow("ex-1", "tech-1", "2025-07-04", "09:00:00", "12:00:00", true, nil, time.Now(), time.Now()))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	rows, err := repo.FindByIDsWithTx(context.Background(), tx, "tech-1", []string{"ex-1"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.Len(t, rows, 1)
	assert.True(t, rows[0].HasTimes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionRepositoryDeleteBefore(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleExceptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_exceptions WHERE date < $1")).
		WithArgs("2024-07-01").
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteBefore(context.Background(), models.MustParseDate("2024-07-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
