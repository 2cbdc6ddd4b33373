package dto

import (
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
)

// DashboardStatsResponse holds the dashboard counters
type DashboardStatsResponse struct {
	TotalStudents  int64 `json:"totalStudents" example:"250"`
	Vaccinated     int64 `json:"vaccinated" example:"180"`
	UpcomingDrives int64 `json:"upcomingDrives" example:"2"`
	Pending        int64 `json:"pending" example:"70"`
}

// GradeProgressResponse is one bar of the per-grade chart
type GradeProgressResponse struct {
	Grade      string `json:"grade" example:"6"`
	Percentage int    `json:"percentage" example:"72"`
}

// ActivityLogResponse is one audit entry
type ActivityLogResponse struct {
	ID          int64     `json:"id" example:"99"`
	UserID      *int64    `json:"userId,omitempty" example:"1"`
	Action      string    `json:"action" example:"CREATE_VACCINATION_DRIVE"`
	Description string    `json:"description" example:"Created vaccination drive: MMR"`
	Timestamp   time.Time `json:"timestamp"`
}

// FromDashboardStats converts aggregate stats
func FromDashboardStats(s *models.DashboardStats) DashboardStatsResponse {
	return DashboardStatsResponse{
		TotalStudents:  s.TotalStudents,
		Vaccinated:     s.Vaccinated,
		UpcomingDrives: s.UpcomingDrives,
		Pending:        s.Pending,
	}
}

// FromGradeProgress converts the per-grade progress list
func FromGradeProgress(progress []models.GradeProgress) []GradeProgressResponse {
	out := make([]GradeProgressResponse, 0, len(progress))
	for _, p := range progress {
		out = append(out, GradeProgressResponse{Grade: p.Grade, Percentage: p.Percentage})
	}
	return out
}

// FromActivityLog converts one audit entry
func FromActivityLog(l *models.ActivityLog) ActivityLogResponse {
	return ActivityLogResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		Action:      string(l.Action),
		Description: l.Description,
		Timestamp:   l.Timestamp,
	}
}

// FromActivityLogs converts a slice of audit entries
func FromActivityLogs(logs []*models.ActivityLog) []ActivityLogResponse {
	out := make([]ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, FromActivityLog(l))
	}
	return out
}
