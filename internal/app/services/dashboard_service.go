package services

import (
	"context"
	"fmt"

	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/repositories"
)

const (
	// DefaultUpcomingLimit is how many upcoming drives the dashboard shows
	DefaultUpcomingLimit = 3
	// DefaultActivityLimit is how many activity entries the dashboard shows
	DefaultActivityLimit = 10
	maxDashboardLimit    = 100
)

// DashboardService answers the dashboard widgets
type DashboardService interface {
	Stats(ctx context.Context) (*dto.DashboardStatsResponse, error)
	VaccinationProgress(ctx context.Context) ([]dto.GradeProgressResponse, error)
	UpcomingDrives(ctx context.Context, limit int) ([]dto.DriveResponse, error)
	RecentActivity(ctx context.Context, limit int) ([]dto.ActivityLogResponse, error)
}

type dashboardServiceImpl struct {
	reportRepo   repositories.IReportRepository
	driveRepo    repositories.IDriveRepository
	activityRepo repositories.IActivityRepository
	calendar     Calendar
	rules        DriveRules
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	reportRepo repositories.IReportRepository,
	driveRepo repositories.IDriveRepository,
	activityRepo repositories.IActivityRepository,
	calendar Calendar,
	rules DriveRules,
) DashboardService {
	return &dashboardServiceImpl{
		reportRepo:   reportRepo,
		driveRepo:    driveRepo,
		activityRepo: activityRepo,
		calendar:     calendar,
		rules:        rules.withDefaults(),
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxDashboardLimit {
		return maxDashboardLimit
	}
	return limit
}

// Stats returns the headline counters
func (s *dashboardServiceImpl) Stats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	stats, err := s.reportRepo.DashboardStats(ctx, s.calendar.Today())
	if err != nil {
		return nil, fmt.Errorf("error loading dashboard stats: %w", err)
	}
	resp := dto.FromDashboardStats(stats)
	return &resp, nil
}

// VaccinationProgress returns the vaccinated percentage per grade
func (s *dashboardServiceImpl) VaccinationProgress(ctx context.Context) ([]dto.GradeProgressResponse, error) {
	progress, err := s.reportRepo.GradeProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading vaccination progress: %w", err)
	}
	return dto.FromGradeProgress(progress), nil
}

// UpcomingDrives returns scheduled drives within the upcoming window, soonest first
func (s *dashboardServiceImpl) UpcomingDrives(ctx context.Context, limit int) ([]dto.DriveResponse, error) {
	today := s.calendar.Today()
	drives, err := s.driveRepo.ListUpcoming(ctx, today, today.AddDate(0, 0, s.rules.UpcomingWindowDays), clampLimit(limit, DefaultUpcomingLimit))
	if err != nil {
		return nil, fmt.Errorf("error loading upcoming drives: %w", err)
	}
	return dto.FromDrives(drives), nil
}

// RecentActivity returns the newest audit entries
func (s *dashboardServiceImpl) RecentActivity(ctx context.Context, limit int) ([]dto.ActivityLogResponse, error) {
	logs, err := s.activityRepo.ListRecent(ctx, clampLimit(limit, DefaultActivityLimit))
	if err != nil {
		return nil, fmt.Errorf("error loading activity logs: %w", err)
	}
	return dto.FromActivityLogs(logs), nil
}
