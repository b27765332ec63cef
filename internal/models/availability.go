package models

// AvailabilityWindow is a resolved bookable interval on a specific date.
type AvailabilityWindow struct {
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// DayAvailability pairs a date with its resolved windows.
type DayAvailability struct {
	Date    Date                 `json:"date"`
	Windows []AvailabilityWindow `json:"windows"`
	// Source is "exception" when an override decided the result, otherwise "weekly".
	Source string `json:"source"`
}

const (
	AvailabilitySourceWeekly    = "weekly"
	AvailabilitySourceException = "exception"
)
