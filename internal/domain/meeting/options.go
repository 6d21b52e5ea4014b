package meeting

import "time"

// ListOptions provides filtering options for listing meetings.
type ListOptions struct {
	SemesterID    string
	OnlyPublished bool
	StartsAfter   *time.Time
	StartsBefore  *time.Time
	Limit         int
	Offset        int
}
