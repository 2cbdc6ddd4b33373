package models

import "time"

// VaccinationRecord links one student to one drive
type VaccinationRecord struct {
	ID              int64     `db:"id"`
	StudentID       int64     `db:"student_id"`
	DriveID         int64     `db:"drive_id"`
	VaccinationDate time.Time `db:"vaccination_date"`
	Notes           *string   `db:"notes"`
	CreatedAt       time.Time `db:"created_at"`
}
