package dto

import (
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
)

// CreateRecordRequest is the body of POST /vaccination-records
type CreateRecordRequest struct {
	StudentID       int64  `json:"studentId" binding:"required,min=1" example:"3"`
	DriveID         int64  `json:"driveId" binding:"required,min=1" example:"1"`
	VaccinationDate string `json:"vaccinationDate" binding:"omitempty,datetime=2006-01-02" example:"2026-11-20"`
	Notes           string `json:"notes" example:"No adverse reaction"`
}

// RecordResponse is the wire form of a vaccination record
type RecordResponse struct {
	ID              int64     `json:"id" example:"10"`
	StudentID       int64     `json:"studentId" example:"3"`
	DriveID         int64     `json:"driveId" example:"1"`
	VaccinationDate string    `json:"vaccinationDate" example:"2026-11-20"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FromRecord converts a record model to its response
func FromRecord(r *models.VaccinationRecord) RecordResponse {
	return RecordResponse{
		ID:              r.ID,
		StudentID:       r.StudentID,
		DriveID:         r.DriveID,
		VaccinationDate: formatDate(r.VaccinationDate),
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
}

// FromRecords converts a slice of record models
func FromRecords(records []*models.VaccinationRecord) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}
