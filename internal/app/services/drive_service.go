package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/repositories"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
	"github.com/yigit/vaxportal/internal/pkg/metrics"
	"github.com/yigit/vaxportal/internal/pkg/validation"
)

// DriveService manages the lifecycle of vaccination drives
type DriveService interface {
	CreateDrive(ctx context.Context, actor models.Actor, req *dto.CreateDriveRequest) (*dto.DriveResponse, error)
	UpdateDrive(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateDriveRequest) (*dto.DriveResponse, error)
	DeleteDrive(ctx context.Context, actor models.Actor, id int64) error
	GetDrive(ctx context.Context, id int64) (*dto.DriveResponse, error)
	ListDrives(ctx context.Context, filter models.DriveFilter) (*dto.DriveListResponse, error)
	// SettlePastDrives completes every open drive whose date has passed
	SettlePastDrives(ctx context.Context) (int64, error)
}

// driveServiceImpl implements DriveService
type driveServiceImpl struct {
	tx         Transactor
	driveRepo  repositories.IDriveRepository
	recordRepo repositories.IRecordRepository
	audit      *auditor
	calendar   Calendar
	rules      DriveRules
	intn       intnFunc
	logger     zerolog.Logger
}

// NewDriveService creates a new DriveService
func NewDriveService(
	tx Transactor,
	driveRepo repositories.IDriveRepository,
	recordRepo repositories.IRecordRepository,
	activityRepo repositories.IActivityRepository,
	publisher ActivityPublisher,
	calendar Calendar,
	rules DriveRules,
	logger zerolog.Logger,
) DriveService {
	return &driveServiceImpl{
		tx:         tx,
		driveRepo:  driveRepo,
		recordRepo: recordRepo,
		audit:      newAuditor(activityRepo, publisher, logger),
		calendar:   calendar,
		rules:      rules.withDefaults(),
		intn:       defaultIntn,
		logger:     logger,
	}
}

// checkLeadTime enforces the minimum scheduling notice
func (s *driveServiceImpl) checkLeadTime(date, today time.Time) error {
	if date.Before(today.AddDate(0, 0, s.rules.LeadDays)) {
		return apperrors.NewDriveTooSoonError(s.rules.LeadDays)
	}
	return nil
}

func driveDescription(verb string, d *models.VaccinationDrive) string {
	return fmt.Sprintf("%s vaccination drive: %s on %s", verb, d.VaccineName, helpers.FormatDate(d.DriveDate))
}

// CreateDrive schedules a new drive
func (s *driveServiceImpl) CreateDrive(ctx context.Context, actor models.Actor, req *dto.CreateDriveRequest) (*dto.DriveResponse, error) {
	today := s.calendar.Today()

	vaccineName := strings.TrimSpace(req.VaccineName)
	if vaccineName == "" {
		return nil, apperrors.NewValidationError("Vaccine name is required")
	}
	date, err := helpers.ParseDate(req.DriveDate)
	if err != nil {
		return nil, apperrors.NewValidationError("Drive date must be a valid date (YYYY-MM-DD)")
	}
	if err := s.checkLeadTime(date, today); err != nil {
		return nil, err
	}
	if !validation.ValidGradeList(req.ApplicableGrades) {
		return nil, apperrors.NewValidationError("Applicable grades must be a comma-separated list of grades")
	}
	if req.AvailableDoses < 1 {
		return nil, apperrors.NewValidationError("Available doses must be at least 1")
	}

	drive := &models.VaccinationDrive{
		DriveID:          strings.TrimSpace(req.DriveID),
		VaccineName:      vaccineName,
		DriveDate:        date,
		ApplicableGrades: models.JoinGrades(models.SplitGrades(req.ApplicableGrades)),
		AvailableDoses:   req.AvailableDoses,
		UsedDoses:        0,
		Status:           models.DriveStatusScheduled,
		Notes:            helpers.NullableString(req.Notes),
	}

	var entry *models.ActivityLog
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if drive.DriveID == "" {
			now := s.calendar.Now()
			id, err := generateUniqueID(ctx, func() string { return newDriveID(now, s.intn) }, s.driveRepo.DriveIDExists)
			if err != nil {
				return err
			}
			drive.DriveID = id
		} else {
			taken, err := s.driveRepo.DriveIDExists(ctx, drive.DriveID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.ErrDriveIDAlreadyExists
			}
		}

		if err := s.driveRepo.Create(ctx, drive); err != nil {
			return err
		}

		entry, err = s.audit.record(ctx, actor, models.ActionCreateDrive, driveDescription("Created new", drive))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.announce(ctx, entry, drive.ID)

	resp := dto.FromDrive(drive)
	return &resp, nil
}

func isEmptyDriveUpdate(req *dto.UpdateDriveRequest) bool {
	return req.VaccineName == nil && req.DriveDate == nil && req.ApplicableGrades == nil &&
		req.AvailableDoses == nil && req.Status == nil && req.Notes == nil
}

// applyDriveUpdate validates req against the locked drive and copies it over.
// Only a changed date is checked against the lead time.
func (s *driveServiceImpl) applyDriveUpdate(d *models.VaccinationDrive, req *dto.UpdateDriveRequest, today time.Time) error {
	if req.VaccineName != nil {
		name := strings.TrimSpace(*req.VaccineName)
		if name == "" {
			return apperrors.NewValidationError("Vaccine name cannot be empty")
		}
		d.VaccineName = name
	}

	if req.DriveDate != nil {
		date, err := helpers.ParseDate(*req.DriveDate)
		if err != nil {
			return apperrors.NewValidationError("Drive date must be a valid date (YYYY-MM-DD)")
		}
		if !date.Equal(d.DriveDate) {
			if err := s.checkLeadTime(date, today); err != nil {
				return err
			}
			d.DriveDate = date
		}
	}

	if req.ApplicableGrades != nil {
		if !validation.ValidGradeList(*req.ApplicableGrades) {
			return apperrors.NewValidationError("Applicable grades must be a comma-separated list of grades")
		}
		d.ApplicableGrades = models.JoinGrades(models.SplitGrades(*req.ApplicableGrades))
	}

	if req.AvailableDoses != nil {
		doses := *req.AvailableDoses
		if doses < 1 {
			return apperrors.NewValidationError("Available doses must be at least 1")
		}
		if doses < d.UsedDoses {
			return apperrors.NewValidationError(fmt.Sprintf("Available doses cannot be less than used doses (%d)", d.UsedDoses)).
				WithDetails(map[string]interface{}{"usedDoses": d.UsedDoses})
		}
		d.AvailableDoses = doses
	}

	if req.Status != nil {
		next := models.DriveStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !next.IsValid() {
			return apperrors.NewValidationError(fmt.Sprintf("Unknown drive status %q", *req.Status))
		}
		if !d.Status.CanTransitionTo(next) {
			return apperrors.NewValidationError(fmt.Sprintf("Cannot change drive status from %s to %s", d.Status, next))
		}
		d.Status = next
	}

	if req.Notes != nil {
		d.Notes = helpers.NullableString(*req.Notes)
	}

	return nil
}

// settleLocked persists date-based completion of a locked drive
func (s *driveServiceImpl) settleLocked(ctx context.Context, d *models.VaccinationDrive, today time.Time) error {
	from := d.Status
	if !d.Settle(today) {
		return nil
	}
	if err := s.driveRepo.UpdateStatus(ctx, d.ID, d.Status); err != nil {
		return err
	}
	metrics.DriveTransition(string(from), string(d.Status))
	return nil
}

// UpdateDrive edits an open drive
func (s *driveServiceImpl) UpdateDrive(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateDriveRequest) (*dto.DriveResponse, error) {
	if isEmptyDriveUpdate(req) {
		return nil, apperrors.NewValidationError("No fields to update")
	}

	today := s.calendar.Today()

	var (
		drive     *models.VaccinationDrive
		entry     *models.ActivityLog
		rejection error
		from      models.DriveStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		drive, err = s.driveRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := s.settleLocked(ctx, drive, today); err != nil {
			return err
		}
		if drive.Status.IsTerminal() {
			// commit the settled status, reject the edit
			rejection = apperrors.ErrDriveImmutable
			return nil
		}

		from = drive.Status
		if err := s.applyDriveUpdate(drive, req, today); err != nil {
			return err
		}
		if err := s.driveRepo.Update(ctx, drive); err != nil {
			return err
		}

		entry, err = s.audit.record(ctx, actor, models.ActionUpdateDrive, driveDescription("Updated", drive))
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}

	if from != drive.Status {
		metrics.DriveTransition(string(from), string(drive.Status))
	}
	s.audit.announce(ctx, entry, drive.ID)

	resp := dto.FromDrive(drive)
	return &resp, nil
}

// DeleteDrive removes a drive that has no vaccination records
func (s *driveServiceImpl) DeleteDrive(ctx context.Context, actor models.Actor, id int64) error {
	var entry *models.ActivityLog
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		drive, err := s.driveRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		hasRecords, err := s.recordRepo.ExistsForDrive(ctx, id)
		if err != nil {
			return err
		}
		if hasRecords {
			return apperrors.ErrDriveHasRecords
		}

		if err := s.driveRepo.Delete(ctx, id); err != nil {
			return err
		}

		entry, err = s.audit.record(ctx, actor, models.ActionDeleteDrive, driveDescription("Deleted", drive))
		return err
	})
	if err != nil {
		return err
	}

	s.audit.announce(ctx, entry, id)
	return nil
}

// GetDrive returns a drive with its status settled as of today
func (s *driveServiceImpl) GetDrive(ctx context.Context, id int64) (*dto.DriveResponse, error) {
	drive, err := s.driveRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	drive.Status = drive.SettledStatus(s.calendar.Today())
	resp := dto.FromDrive(drive)
	return &resp, nil
}

// ListDrives returns a page of drives, newest date first
func (s *driveServiceImpl) ListDrives(ctx context.Context, filter models.DriveFilter) (*dto.DriveListResponse, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		if models.IsAllFilter(string(filter.Status)) {
			filter.Status = ""
		} else {
			return nil, apperrors.NewValidationError(fmt.Sprintf("Unknown drive status %q", filter.Status))
		}
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperrors.NewValidationError("End date must not be before start date")
	}

	filter.Page, filter.Limit = helpers.NormalizePage(filter.Page, filter.Limit)
	filter.Today = s.calendar.Today()

	drives, total, err := s.driveRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing vaccination drives: %w", err)
	}

	for _, d := range drives {
		d.Status = d.SettledStatus(filter.Today)
	}

	return &dto.DriveListResponse{
		Drives:     dto.FromDrives(drives),
		Total:      total,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.Limit),
	}, nil
}

// SettlePastDrives completes every open drive whose date has passed
func (s *driveServiceImpl) SettlePastDrives(ctx context.Context) (int64, error) {
	n, err := s.driveRepo.CompletePast(ctx, s.calendar.Today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("Completed past vaccination drives")
	}
	return n, nil
}

