package model

import "time"

// VideoUpdate is the outcome of refreshing one persisted video. Flags only
// ever move a record towards inactive, archived and removed.
type VideoUpdate struct {
	VideoID string

	// Statistics is nil when the platform no longer returns the video.
	Statistics *Statistics

	// Sample is set when the fresh statistics differ from the stored ones.
	Sample *HistoricalSample

	Deactivate bool
	Archive    bool
	Removed    bool
	UpdatedAt  time.Time
}
