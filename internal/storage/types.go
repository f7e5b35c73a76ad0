package storage

import "time"

// Firing is one entry of the alarm firing log.
type Firing struct {
	ID         int64
	AlarmID    string
	Label      string // "HH:MM"
	TriggerKey string // yyyymmddHHMM of the minute that fired
	Timestamp  time.Time
}

// Stats holds aggregate statistics about the state database.
type Stats struct {
	TotalKeys    int64
	TotalFirings int64
	LastFiring   time.Time
}
