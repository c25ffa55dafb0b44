package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "" or one of models.EventTypes, case-insensitive
	Limit int       // keep only the most recent Limit events; 0 keeps all
}
