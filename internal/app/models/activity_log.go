package models

import "time"

// ActivityAction names an audited administrative action
type ActivityAction string

const (
	ActionLogin          ActivityAction = "LOGIN"
	ActionCreateUser     ActivityAction = "CREATE_USER"
	ActionCreateStudent  ActivityAction = "CREATE_STUDENT"
	ActionUpdateStudent  ActivityAction = "UPDATE_STUDENT"
	ActionDeleteStudent  ActivityAction = "DELETE_STUDENT"
	ActionImportStudents ActivityAction = "IMPORT_STUDENTS"
	ActionCreateDrive    ActivityAction = "CREATE_VACCINATION_DRIVE"
	ActionUpdateDrive    ActivityAction = "UPDATE_VACCINATION_DRIVE"
	ActionDeleteDrive    ActivityAction = "DELETE_VACCINATION_DRIVE"
	ActionCreateRecord   ActivityAction = "CREATE_VACCINATION_RECORD"
	ActionDeleteRecord   ActivityAction = "DELETE_VACCINATION_RECORD"
)

// ActivityLog is an append-only audit entry
type ActivityLog struct {
	ID          int64          `db:"id"`
	UserID      *int64         `db:"user_id"`
	Action      ActivityAction `db:"action"`
	Description string         `db:"description"`
	Timestamp   time.Time      `db:"timestamp"`
}

// ActivityEvent is the live notification emitted after an audited action commits
type ActivityEvent struct {
	Action      ActivityAction `json:"action"`
	Description string         `json:"description"`
	UserID      *int64         `json:"userId,omitempty"`
	EntityID    int64          `json:"entityId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Event builds the live notification for an audit entry
func (l *ActivityLog) Event(entityID int64) ActivityEvent {
	return ActivityEvent{
		Action:      l.Action,
		Description: l.Description,
		UserID:      l.UserID,
		EntityID:    entityID,
		Timestamp:   l.Timestamp,
	}
}
