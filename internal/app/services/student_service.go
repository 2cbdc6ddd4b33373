package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/repositories"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/csvimport"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
	"github.com/yigit/vaxportal/internal/pkg/metrics"
)

// StudentService manages the student roster
type StudentService interface {
	CreateStudent(ctx context.Context, actor models.Actor, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	GetStudent(ctx context.Context, id int64) (*dto.StudentResponse, error)
	UpdateStudent(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	DeleteStudent(ctx context.Context, actor models.Actor, id int64) error
	ListStudents(ctx context.Context, filter models.StudentFilter) (*dto.StudentListResponse, error)
	ImportStudents(ctx context.Context, actor models.Actor, r io.Reader) (*dto.ImportStudentsResponse, error)
}

// studentServiceImpl implements StudentService
type studentServiceImpl struct {
	tx          Transactor
	studentRepo repositories.IStudentRepository
	recordRepo  repositories.IRecordRepository
	audit       *auditor
	calendar    Calendar
	intn        intnFunc
	logger      zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(
	tx Transactor,
	studentRepo repositories.IStudentRepository,
	recordRepo repositories.IRecordRepository,
	activityRepo repositories.IActivityRepository,
	publisher ActivityPublisher,
	calendar Calendar,
	logger zerolog.Logger,
) StudentService {
	return &studentServiceImpl{
		tx:          tx,
		studentRepo: studentRepo,
		recordRepo:  recordRepo,
		audit:       newAuditor(activityRepo, publisher, logger),
		calendar:    calendar,
		intn:        defaultIntn,
		logger:      logger,
	}
}

func studentDescription(verb string, s *models.Student) string {
	return fmt.Sprintf("%s student: %s (%s)", verb, s.FullName(), s.StudentID)
}

// parseDateOfBirth accepts an empty value; a birth date must not be in the future
func (s *studentServiceImpl) parseDateOfBirth(value string) (*time.Time, error) {
	dob, err := helpers.ParseOptionalDate(value)
	if err != nil {
		return nil, apperrors.NewValidationError("Date of birth must be a valid date (YYYY-MM-DD)")
	}
	if dob != nil && dob.After(s.calendar.Today()) {
		return nil, apperrors.NewValidationError("Date of birth cannot be in the future")
	}
	return dob, nil
}

// assignStudentID fills in a generated ID or checks a supplied one
func (s *studentServiceImpl) assignStudentID(ctx context.Context, student *models.Student) error {
	if student.StudentID == "" {
		now := s.calendar.Now()
		id, err := generateUniqueID(ctx, func() string { return newStudentID(now, s.intn) }, s.studentRepo.StudentIDExists)
		if err != nil {
			return err
		}
		student.StudentID = id
		return nil
	}

	taken, err := s.studentRepo.StudentIDExists(ctx, student.StudentID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.ErrStudentIDAlreadyExists
	}
	return nil
}

// CreateStudent adds a student
func (s *studentServiceImpl) CreateStudent(ctx context.Context, actor models.Actor, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	student := &models.Student{
		StudentID:     strings.TrimSpace(req.StudentID),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         helpers.NullableString(req.Email),
		Grade:         strings.TrimSpace(req.Grade),
		Address:       helpers.NullableString(req.Address),
		ParentContact: helpers.NullableString(req.ParentContact),
	}
	if student.FirstName == "" || student.LastName == "" || student.Grade == "" {
		return nil, apperrors.NewValidationError("First name, last name and grade are required")
	}

	dob, err := s.parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	student.DateOfBirth = dob

	var entry *models.ActivityLog
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.assignStudentID(ctx, student); err != nil {
			return err
		}
		if err := s.studentRepo.Create(ctx, student); err != nil {
			return err
		}

		var err error
		entry, err = s.audit.record(ctx, actor, models.ActionCreateStudent, studentDescription("Created new", student))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.announce(ctx, entry, student.ID)

	resp := dto.FromStudent(student)
	return &resp, nil
}

// GetStudent returns one student
func (s *studentServiceImpl) GetStudent(ctx context.Context, id int64) (*dto.StudentResponse, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.FromStudent(student)
	return &resp, nil
}

// toStudentUpdate validates a partial update
func (s *studentServiceImpl) toStudentUpdate(req *dto.UpdateStudentRequest) (models.StudentUpdate, error) {
	var u models.StudentUpdate

	required := func(v *string, field string) (*string, error) {
		if v == nil {
			return nil, nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return nil, apperrors.NewValidationError(field + " cannot be empty")
		}
		return &trimmed, nil
	}

	var err error
	if u.StudentID, err = required(req.StudentID, "Student ID"); err != nil {
		return u, err
	}
	if u.FirstName, err = required(req.FirstName, "First name"); err != nil {
		return u, err
	}
	if u.LastName, err = required(req.LastName, "Last name"); err != nil {
		return u, err
	}
	if u.Grade, err = required(req.Grade, "Grade"); err != nil {
		return u, err
	}

	if req.DateOfBirth != nil {
		if u.DateOfBirth, err = s.parseDateOfBirth(*req.DateOfBirth); err != nil {
			return u, err
		}
	}

	u.Email = req.Email
	u.Address = req.Address
	u.ParentContact = req.ParentContact
	return u, nil
}

// UpdateStudent applies a partial update
func (s *studentServiceImpl) UpdateStudent(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	update, err := s.toStudentUpdate(req)
	if err != nil {
		return nil, err
	}

	var (
		student *models.Student
		entry   *models.ActivityLog
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		student, err = s.studentRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.StudentID != nil && *update.StudentID != student.StudentID {
			taken, err := s.studentRepo.StudentIDExists(ctx, *update.StudentID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.ErrStudentIDAlreadyExists
			}
		}

		update.Apply(student)
		// blank optional strings clear the column
		student.Email = helpers.NullableString(helpers.StringValue(student.Email))
		student.Address = helpers.NullableString(helpers.StringValue(student.Address))
		student.ParentContact = helpers.NullableString(helpers.StringValue(student.ParentContact))

		if err := s.studentRepo.Update(ctx, student); err != nil {
			return err
		}

		entry, err = s.audit.record(ctx, actor, models.ActionUpdateStudent, studentDescription("Updated", student))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.announce(ctx, entry, student.ID)

	resp := dto.FromStudent(student)
	return &resp, nil
}

// DeleteStudent removes a student without vaccination records
func (s *studentServiceImpl) DeleteStudent(ctx context.Context, actor models.Actor, id int64) error {
	var entry *models.ActivityLog
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		student, err := s.studentRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		hasRecords, err := s.recordRepo.ExistsForStudent(ctx, id)
		if err != nil {
			return err
		}
		if hasRecords {
			return apperrors.ErrStudentHasRecords
		}

		if err := s.studentRepo.Delete(ctx, id); err != nil {
			return err
		}

		entry, err = s.audit.record(ctx, actor, models.ActionDeleteStudent, studentDescription("Deleted", student))
		return err
	})
	if err != nil {
		return err
	}

	s.audit.announce(ctx, entry, id)
	return nil
}

// ListStudents returns a page of students
func (s *studentServiceImpl) ListStudents(ctx context.Context, filter models.StudentFilter) (*dto.StudentListResponse, error) {
	switch filter.VaccinationStatus {
	case "", models.VaccinationStatusAll, models.VaccinationStatusVaccinated, models.VaccinationStatusNotVaccinated:
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("Unknown vaccination status %q", filter.VaccinationStatus))
	}

	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.Limit = helpers.NormalizePage(filter.Page, filter.Limit)

	students, total, err := s.studentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	return &dto.StudentListResponse{
		Students:   dto.FromStudents(students),
		Total:      total,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.Limit),
	}, nil
}

// ImportStudents creates every row of a student CSV in one transaction.
// Any failing row rejects the whole file.
func (s *studentServiceImpl) ImportStudents(ctx context.Context, actor models.Actor, r io.Reader) (*dto.ImportStudentsResponse, error) {
	rows, err := csvimport.ParseStudents(r)
	if err != nil {
		var rowErr *csvimport.RowError
		if errors.As(err, &rowErr) {
			return nil, apperrors.NewValidationError("Invalid CSV file").
				WithDetails(map[string]interface{}{"line": rowErr.Line, "error": rowErr.Err.Error()})
		}
		return nil, apperrors.NewValidationError(err.Error())
	}

	var entry *models.ActivityLog
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, row := range rows {
			student := &models.Student{
				StudentID:     row.StudentID,
				FirstName:     row.FirstName,
				LastName:      row.LastName,
				Email:         helpers.NullableString(row.Email),
				Grade:         row.Grade,
				Address:       helpers.NullableString(row.Address),
				ParentContact: helpers.NullableString(row.ParentContact),
			}
			if row.DateOfBirth != "" {
				dob, err := helpers.ParseDate(row.DateOfBirth)
				if err == nil {
					student.DateOfBirth = &dob
				}
			}

			if err := s.assignStudentID(ctx, student); err != nil {
				return wrapImportRowError(row.Line, err)
			}
			if err := s.studentRepo.Create(ctx, student); err != nil {
				return wrapImportRowError(row.Line, err)
			}
		}

		var err error
		entry, err = s.audit.record(ctx, actor, models.ActionImportStudents, fmt.Sprintf("Imported %d students from CSV", len(rows)))
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.StudentsImported(len(rows))
	s.audit.announce(ctx, entry, 0)

	return &dto.ImportStudentsResponse{Count: len(rows)}, nil
}

// wrapImportRowError attaches the CSV line to domain errors
func wrapImportRowError(line int, err error) error {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) {
		return ce.WithDetails(map[string]interface{}{"line": line})
	}
	return fmt.Errorf("line %d: %w", line, err)
}
