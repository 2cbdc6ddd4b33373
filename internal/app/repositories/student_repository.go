package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/db"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/dberrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// StudentRepository handles database operations for students
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

var studentColumns = []string{
	"s.id", "s.student_id", "s.first_name", "s.last_name", "s.email",
	"s.date_of_birth", "s.grade", "s.address", "s.parent_contact", "s.created_at",
}

func scanStudent(row scanner) (*models.Student, error) {
	var s models.Student
	if err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.FirstName,
		&s.LastName,
		&s.Email,
		&s.DateOfBirth,
		&s.Grade,
		&s.Address,
		&s.ParentContact,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func translateStudentWriteError(err error) error {
	if dberrors.IsDuplicateConstraintError(err, "students_student_id_key") {
		return apperrors.ErrStudentIDAlreadyExists
	}
	return err
}

// Create inserts a new student
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	query, args, err := psql.Insert("students").
		Columns("student_id", "first_name", "last_name", "email", "date_of_birth", "grade", "address", "parent_contact").
		Values(s.StudentID, s.FirstName, s.LastName, s.Email, s.DateOfBirth, s.Grade, s.Address, s.ParentContact).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building student insert: %w", err)
	}

	if err := db.Conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt); err != nil {
		if e := translateStudentWriteError(err); e != err {
			return e
		}
		return fmt.Errorf("error creating student: %w", err)
	}

	return nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query, args, err := psql.Select(studentColumns...).From("students s").Where(squirrel.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building student query: %w", err)
	}

	s, err := scanStudent(db.Conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	return s, nil
}

// Update writes every mutable column of s
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	query, args, err := psql.Update("students").
		SetMap(map[string]interface{}{
			"student_id":     s.StudentID,
			"first_name":     s.FirstName,
			"last_name":      s.LastName,
			"email":          s.Email,
			"date_of_birth":  s.DateOfBirth,
			"grade":          s.Grade,
			"address":        s.Address,
			"parent_contact": s.ParentContact,
		}).
		Where(squirrel.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building student update: %w", err)
	}

	tag, err := db.Conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		if e := translateStudentWriteError(err); e != err {
			return e
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}

	return nil
}

// Delete removes a student; students with vaccination records are kept
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrStudentHasRecords
		}
		return fmt.Errorf("error deleting student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// StudentIDExists reports whether the human-readable ID is taken
func (r *StudentRepository) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE student_id = $1)`, studentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking student id: %w", err)
	}
	return exists, nil
}

// applyStudentFilter adds the listing conditions shared by the page and count queries
func applyStudentFilter(b squirrel.SelectBuilder, filter models.StudentFilter) squirrel.SelectBuilder {
	if filter.Search != "" {
		pattern := helpers.LikePattern(filter.Search)
		b = b.Where(squirrel.Or{
			squirrel.ILike{"s.first_name": pattern},
			squirrel.ILike{"s.last_name": pattern},
			squirrel.ILike{"s.email": pattern},
			squirrel.ILike{"s.student_id": pattern},
		})
	}
	if !models.IsAllFilter(filter.Grade) {
		b = b.Where(squirrel.Eq{"s.grade": filter.Grade})
	}

	hasRecord := "EXISTS (SELECT 1 FROM vaccination_records vr WHERE vr.student_id = s.id)"
	switch filter.VaccinationStatus {
	case models.VaccinationStatusVaccinated:
		b = b.Where(hasRecord)
	case models.VaccinationStatusNotVaccinated:
		b = b.Where("NOT " + hasRecord)
	}

	return b
}

// List returns one page of students matching filter and the total match count
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int64, error) {
	conn := db.Conn(ctx, r.db)

	countQuery, countArgs, err := applyStudentFilter(psql.Select("COUNT(*)").From("students s"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building student count: %w", err)
	}

	var total int64
	if err := conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Limit)
	query, args, err := applyStudentFilter(psql.Select(studentColumns...).From("students s"), filter).
		OrderBy("s.last_name ASC", "s.first_name ASC", "s.id ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building student list: %w", err)
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0, limit)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return students, total, nil
}
