package models

import "time"

// RunRecord summarizes the most recent engine run for status reporting.
type RunRecord struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Considered int       `json:"considered"`
	Acted      int       `json:"acted"`
	NoAction   int       `json:"no_action"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}
