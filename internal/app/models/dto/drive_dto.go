package dto

import (
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
)

// CreateDriveRequest is the body of POST /vaccination-drives
type CreateDriveRequest struct {
	DriveID          string `json:"driveId" binding:"omitempty,max=50" example:"DR-2026-05123"`
	VaccineName      string `json:"vaccineName" binding:"required,notblank,max=200" example:"MMR"`
	DriveDate        string `json:"driveDate" binding:"required,datetime=2006-01-02" example:"2026-11-20"`
	ApplicableGrades string `json:"applicableGrades" binding:"required,grades" example:"5,6,7"`
	AvailableDoses   int    `json:"availableDoses" binding:"required,min=1" example:"100"`
	Notes            string `json:"notes" example:"Bring consent forms"`
}

// UpdateDriveRequest is the body of PUT /vaccination-drives/{id}; absent fields stay unchanged
type UpdateDriveRequest struct {
	VaccineName      *string `json:"vaccineName" binding:"omitempty,notblank,max=200"`
	DriveDate        *string `json:"driveDate" binding:"omitempty,datetime=2006-01-02"`
	ApplicableGrades *string `json:"applicableGrades" binding:"omitempty,grades"`
	AvailableDoses   *int    `json:"availableDoses" binding:"omitempty,min=1"`
	Status           *string `json:"status" binding:"omitempty,oneof=planning scheduled completed cancelled"`
	Notes            *string `json:"notes"`
}

// DriveResponse is the wire form of a vaccination drive
type DriveResponse struct {
	ID               int64     `json:"id" example:"1"`
	DriveID          string    `json:"driveId" example:"DR-2026-05123"`
	VaccineName      string    `json:"vaccineName" example:"MMR"`
	DriveDate        string    `json:"driveDate" example:"2026-11-20"`
	ApplicableGrades string    `json:"applicableGrades" example:"5,6,7"`
	AvailableDoses   int       `json:"availableDoses" example:"100"`
	UsedDoses        int       `json:"usedDoses" example:"12"`
	RemainingDoses   int       `json:"remainingDoses" example:"88"`
	Status           string    `json:"status" example:"scheduled"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// DriveListResponse is a page of drives
type DriveListResponse struct {
	Drives     []DriveResponse `json:"drives"`
	Total      int64           `json:"total" example:"8"`
	Pagination PaginationInfo  `json:"pagination"`
}

// FromDrive converts a drive model to its response
func FromDrive(d *models.VaccinationDrive) DriveResponse {
	return DriveResponse{
		ID:               d.ID,
		DriveID:          d.DriveID,
		VaccineName:      d.VaccineName,
		DriveDate:        formatDate(d.DriveDate),
		ApplicableGrades: d.ApplicableGrades,
		AvailableDoses:   d.AvailableDoses,
		UsedDoses:        d.UsedDoses,
		RemainingDoses:   d.RemainingDoses(),
		Status:           string(d.Status),
		Notes:            d.Notes,
		CreatedAt:        d.CreatedAt,
	}
}

// FromDrives converts a slice of drive models
func FromDrives(drives []*models.VaccinationDrive) []DriveResponse {
	out := make([]DriveResponse, 0, len(drives))
	for _, d := range drives {
		out = append(out, FromDrive(d))
	}
	return out
}
