package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

const weeklyBlockColumns = `id, technician_id, day_of_week, block_name, start_time, end_time, is_available, created_at, updated_at`

// WeeklyBlockRepository persists the recurring weekly schedule of technicians.
type WeeklyBlockRepository struct {
	db *sqlx.DB
}

// NewWeeklyBlockRepository constructs a WeeklyBlockRepository.
func NewWeeklyBlockRepository(db *sqlx.DB) *WeeklyBlockRepository {
	return &WeeklyBlockRepository{db: db}
}

// ListByTechnician returns every block for a technician ordered by weekday and start time.
func (r *WeeklyBlockRepository) ListByTechnician(ctx context.Context, technicianID string) ([]models.WeeklyBlock, error) {
	query := `SELECT ` + weeklyBlockColumns + ` FROM weekly_blocks WHERE technician_id = $1 ORDER BY day_of_week ASC, start_time ASC, id ASC`
	var blocks []models.WeeklyBlock
	if err := r.db.SelectContext(ctx, &blocks, query, technicianID); err != nil {
		return nil, fmt.Errorf("list weekly blocks: %w", err)
	}
	return blocks, nil
}

// ListByTechnicianAndDay returns the blocks of one weekday (0 = Sunday).
func (r *WeeklyBlockRepository) ListByTechnicianAndDay(ctx context.Context, technicianID string, dayOfWeek int) ([]models.WeeklyBlock, error) {
	query := `SELECT ` + weeklyBlockColumns + ` FROM weekly_blocks WHERE technician_id = $1 AND day_of_week = $2 ORDER BY start_time ASC, id ASC`
	var blocks []models.WeeklyBlock
	if err := r.db.SelectContext(ctx, &blocks, query, technicianID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list weekly blocks by day: %w", err)
	}
	return blocks, nil
}

// ReplaceWithTx swaps the weekly schedule inside tx. Callers hold the
// technician lock from TxManager.WithTechnicianLock.
func (r *WeeklyBlockRepository) ReplaceWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, blocks []models.WeeklyBlock) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.replaceBlocks(ctx, tx, technicianID, blocks)
}

func (r *WeeklyBlockRepository) replaceBlocks(ctx context.Context, exec sqlx.ExtContext, technicianID string, blocks []models.WeeklyBlock) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM weekly_blocks WHERE technician_id = $1`, technicianID); err != nil {
		return fmt.Errorf("clear weekly blocks: %w", err)
	}

	now := time.Now().UTC()
	for i := range blocks {
		payload := blocks[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.TechnicianID = technicianID
		payload.CreatedAt = now
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO weekly_blocks (`+weeklyBlockColumns+`) VALUES (:id, :technician_id, :day_of_week, :block_name, :start_time, :end_time, :is_available, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert weekly block: %w", err)
		}
		blocks[i] = payload
	}
	return nil
}
