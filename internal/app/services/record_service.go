package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/repositories"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
	"github.com/yigit/vaxportal/internal/pkg/metrics"
)

// RecordService records and removes vaccinations against drive capacity
type RecordService interface {
	RecordVaccination(ctx context.Context, actor models.Actor, req *dto.CreateRecordRequest) (*dto.RecordResponse, error)
	RemoveVaccinationRecord(ctx context.Context, actor models.Actor, id int64) error
	ListRecords(ctx context.Context, filter models.RecordFilter) ([]dto.RecordResponse, error)
}

// recordServiceImpl implements RecordService
type recordServiceImpl struct {
	tx          Transactor
	studentRepo repositories.IStudentRepository
	driveRepo   repositories.IDriveRepository
	recordRepo  repositories.IRecordRepository
	audit       *auditor
	calendar    Calendar
	logger      zerolog.Logger
}

// NewRecordService creates a new RecordService
func NewRecordService(
	tx Transactor,
	studentRepo repositories.IStudentRepository,
	driveRepo repositories.IDriveRepository,
	recordRepo repositories.IRecordRepository,
	activityRepo repositories.IActivityRepository,
	publisher ActivityPublisher,
	calendar Calendar,
	logger zerolog.Logger,
) RecordService {
	return &recordServiceImpl{
		tx:          tx,
		studentRepo: studentRepo,
		driveRepo:   driveRepo,
		recordRepo:  recordRepo,
		audit:       newAuditor(activityRepo, publisher, logger),
		calendar:    calendar,
		logger:      logger,
	}
}

// RecordVaccination consumes one dose of the drive for the student. The
// dose increment, the record insert and the audit entry commit together.
func (s *recordServiceImpl) RecordVaccination(ctx context.Context, actor models.Actor, req *dto.CreateRecordRequest) (*dto.RecordResponse, error) {
	today := s.calendar.Today()

	vaccinationDate := today
	if req.VaccinationDate != "" {
		date, err := helpers.ParseDate(req.VaccinationDate)
		if err != nil {
			return nil, apperrors.NewValidationError("Vaccination date must be a valid date (YYYY-MM-DD)")
		}
		vaccinationDate = date
	}

	record := &models.VaccinationRecord{
		StudentID:       req.StudentID,
		DriveID:         req.DriveID,
		VaccinationDate: vaccinationDate,
		Notes:           helpers.NullableString(req.Notes),
	}

	var (
		entry     *models.ActivityLog
		rejection error
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		student, err := s.studentRepo.GetByID(ctx, req.StudentID)
		if err != nil {
			return err
		}

		drive, err := s.driveRepo.GetByIDForUpdate(ctx, req.DriveID)
		if err != nil {
			return err
		}

		from := drive.Status
		if drive.Settle(today) {
			if err := s.driveRepo.UpdateStatus(ctx, drive.ID, drive.Status); err != nil {
				return err
			}
			metrics.DriveTransition(string(from), string(drive.Status))
		}
		if drive.Status.IsTerminal() {
			// keep the settled status, refuse the vaccination
			rejection = apperrors.ErrDriveImmutable
			return nil
		}

		// the drive row lock serialises recorders, so this check holds until commit
		duplicate, err := s.recordRepo.ExistsForPair(ctx, student.ID, drive.ID)
		if err != nil {
			return err
		}
		if duplicate {
			return apperrors.ErrAlreadyVaccinated
		}

		consumed, err := s.driveRepo.IncrementUsedDoses(ctx, drive.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return apperrors.ErrNoDosesAvailable
		}

		if err := s.recordRepo.Create(ctx, record); err != nil {
			return err
		}

		entry, err = s.audit.record(ctx, actor, models.ActionCreateRecord,
			fmt.Sprintf("Vaccinated student %s (%s) with %s", student.FullName(), student.StudentID, drive.VaccineName))
		return err
	})
	if rejection != nil && err == nil {
		err = rejection
	}
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCapacityExceeded):
			metrics.RejectRecord(metrics.ReasonCapacity)
		case errors.Is(err, apperrors.ErrResourceAlreadyExists):
			metrics.RejectRecord(metrics.ReasonDuplicate)
		case errors.Is(err, apperrors.ErrImmutableState):
			metrics.RejectRecord(metrics.ReasonImmutable)
		}
		return nil, err
	}

	metrics.RecordVaccination()
	s.audit.announce(ctx, entry, record.ID)

	resp := dto.FromRecord(record)
	return &resp, nil
}

// RemoveVaccinationRecord deletes a record and returns its dose to the drive
func (s *recordServiceImpl) RemoveVaccinationRecord(ctx context.Context, actor models.Actor, id int64) error {
	var entry *models.ActivityLog
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		record, err := s.recordRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := s.recordRepo.Delete(ctx, id); err != nil {
			return err
		}

		returned, err := s.driveRepo.DecrementUsedDoses(ctx, record.DriveID)
		if err != nil {
			return err
		}
		if !returned {
			s.logger.Warn().
				Int64("recordID", id).
				Int64("driveID", record.DriveID).
				Msg("Used dose counter already at zero while removing record")
		}

		entry, err = s.audit.record(ctx, actor, models.ActionDeleteRecord, fmt.Sprintf("Deleted vaccination record ID: %d", id))
		return err
	})
	if err != nil {
		return err
	}

	metrics.RemoveVaccination()
	s.audit.announce(ctx, entry, id)
	return nil
}

// ListRecords returns records, most recent vaccination first
func (s *recordServiceImpl) ListRecords(ctx context.Context, filter models.RecordFilter) ([]dto.RecordResponse, error) {
	records, err := s.recordRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing vaccination records: %w", err)
	}
	return dto.FromRecords(records), nil
}
