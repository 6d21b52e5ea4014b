package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	MeetingID    string
	ActorID      *string
	SubjectID    *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
