package models

import "time"

// WeeklyBlock is one recurring time window on a weekday.
type WeeklyBlock struct {
	ID           string    `db:"id" json:"id"`
	TechnicianID string    `db:"technician_id" json:"technician_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	BlockName    string    `db:"block_name" json:"block_name"`
	StartTime    TimeOfDay `db:"start_time" json:"start_time"`
	EndTime      TimeOfDay `db:"end_time" json:"end_time"`
	IsAvailable  bool      `db:"is_available" json:"is_available"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// WeeklyBlockOverlapPolicy controls how overlapping blocks on the same weekday are treated.
type WeeklyBlockOverlapPolicy string

const (
	// WeeklyOverlapReject refuses schedules with overlapping available blocks on a weekday.
	WeeklyOverlapReject WeeklyBlockOverlapPolicy = "reject"
	// WeeklyOverlapAllow stores overlapping blocks untouched.
	WeeklyOverlapAllow WeeklyBlockOverlapPolicy = "allow"
)

// Weekday names indexed by DayOfWeek.
var WeekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
