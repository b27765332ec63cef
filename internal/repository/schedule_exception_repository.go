package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

const scheduleExceptionColumns = `id, technician_id, date, start_time, end_time, is_available, reason, created_at, updated_at`

// ScheduleExceptionRepository persists per-day overrides of the weekly schedule.
type ScheduleExceptionRepository struct {
	db *sqlx.DB
}

// NewScheduleExceptionRepository constructs a ScheduleExceptionRepository.
func NewScheduleExceptionRepository(db *sqlx.DB) *ScheduleExceptionRepository {
	return &ScheduleExceptionRepository{db: db}
}

// ListByTechnician returns a technician's exceptions in ascending date order, optionally bounded.
func (r *ScheduleExceptionRepository) ListByTechnician(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ScheduleException, error) {
	conditions := []string{"technician_id = $1"}
	args := []interface{}{technicianID}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM schedule_exceptions WHERE %s ORDER BY date ASC, start_time ASC NULLS FIRST, id ASC`,
		scheduleExceptionColumns, strings.Join(conditions, " AND "))
	var rows []models.ScheduleException
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule exceptions: %w", err)
	}
	return rows, nil
}

// ListByDateRange returns exceptions whose date lies in [from, to].
func (r *ScheduleExceptionRepository) ListByDateRange(ctx context.Context, technicianID string, from, to models.Date) ([]models.ScheduleException, error) {
	return r.listByDateRange(ctx, r.db, technicianID, from, to)
}

// ListByDateRangeWithTx reads the range inside an existing transaction.
func (r *ScheduleExceptionRepository) ListByDateRangeWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, from, to models.Date) ([]models.ScheduleException, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.listByDateRange(ctx, tx, technicianID, from, to)
}

func (r *ScheduleExceptionRepository) listByDateRange(ctx context.Context, q sqlx.QueryerContext, technicianID string, from, to models.Date) ([]models.ScheduleException, error) {
	query := `SELECT ` + scheduleExceptionColumns + ` FROM schedule_exceptions WHERE technician_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC, start_time ASC NULLS FIRST, id ASC`
	var rows []models.ScheduleException
	if err := sqlx.SelectContext(ctx, q, &rows, query, technicianID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule exceptions by range: %w", err)
	}
	return rows, nil
}

// FindByIDsWithTx returns the rows among ids owned by the technician. Foreign
// ids are omitted.
func (r *ScheduleExceptionRepository) FindByIDsWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, ids []string) ([]models.ScheduleException, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.findByIDs(ctx, tx, technicianID, ids)
}

func (r *ScheduleExceptionRepository) findByIDs(ctx context.Context, q sqlx.QueryerContext, technicianID string, ids []string) ([]models.ScheduleException, error) {
	if len(ids) == 0 {
		return []models.ScheduleException{}, nil
	}
	query := `SELECT ` + scheduleExceptionColumns + ` FROM schedule_exceptions WHERE technician_id = $1 AND id = ANY($2) ORDER BY date ASC, id ASC`
	var rows []models.ScheduleException
	if err := sqlx.SelectContext(ctx, q, &rows, query, technicianID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find schedule exceptions: %w", err)
	}
	return rows, nil
}

// InsertWithTx stores one row per exception day using an existing transaction.
// Generated ids and timestamps are written back into rows.
func (r *ScheduleExceptionRepository) InsertWithTx(ctx context.Context, tx *sqlx.Tx, rows []models.ScheduleException) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range rows {
		payload := rows[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.CreatedAt = now
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedule_exceptions (`+scheduleExceptionColumns+`) VALUES (:id, :technician_id, :date, :start_time, :end_time, :is_available, :reason, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert schedule exception: %w", err)
		}
		rows[i] = payload
	}
	return nil
}

// DeleteByIDs removes the technician's rows among ids and reports how many were deleted.
// Ids that belong to other technicians or no longer exist are ignored.
func (r *ScheduleExceptionRepository) DeleteByIDs(ctx context.Context, technicianID string, ids []string) (int64, error) {
	return r.deleteByIDs(ctx, r.db, technicianID, ids)
}

// DeleteByIDsWithTx is DeleteByIDs inside an existing transaction.
func (r *ScheduleExceptionRepository) DeleteByIDsWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, ids []string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("nil transaction provided")
	}
	return r.deleteByIDs(ctx, tx, technicianID, ids)
}

func (r *ScheduleExceptionRepository) deleteByIDs(ctx context.Context, exec sqlx.ExecerContext, technicianID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := exec.ExecContext(ctx, `DELETE FROM schedule_exceptions WHERE technician_id = $1 AND id = ANY($2)`, technicianID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete schedule exceptions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted schedule exceptions: %w", err)
	}
	return affected, nil
}

// DeleteBefore prunes rows dated strictly before cutoff across all technicians.
func (r *ScheduleExceptionRepository) DeleteBefore(ctx context.Context, cutoff models.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_exceptions WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune schedule exceptions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned schedule exceptions: %w", err)
	}
	return affected, nil
}
