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

// RecordRepository handles database operations for vaccination records
type RecordRepository struct {
	db *pgxpool.Pool
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

const recordColumns = "id, student_id, drive_id, vaccination_date, notes, created_at"

func scanRecord(row scanner) (*models.VaccinationRecord, error) {
	var rec models.VaccinationRecord
	if err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.DriveID,
		&rec.VaccinationDate,
		&rec.Notes,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.VaccinationDate = helpers.NormalizeDate(rec.VaccinationDate)
	return &rec, nil
}

// Create inserts a record. A second record for the same student and drive
// is rejected by the student_drive_idx unique index.
func (r *RecordRepository) Create(ctx context.Context, rec *models.VaccinationRecord) error {
	query := `
		INSERT INTO vaccination_records (student_id, drive_id, vaccination_date, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := db.Conn(ctx, r.db).QueryRow(ctx, query, rec.StudentID, rec.DriveID, rec.VaccinationDate, rec.Notes).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "student_drive_idx"):
			return apperrors.ErrAlreadyVaccinated
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.NewResourceNotFoundError("Student or vaccination drive not found")
		}
		return fmt.Errorf("error creating vaccination record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by ID
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*models.VaccinationRecord, error) {
	rec, err := scanRecord(db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+recordColumns+` FROM vaccination_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("error retrieving vaccination record: %w", err)
	}
	return rec, nil
}

// Delete removes a record
func (r *RecordRepository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM vaccination_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting vaccination record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}

// List returns records, most recent vaccination first
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]*models.VaccinationRecord, error) {
	b := psql.Select(recordColumns).From("vaccination_records")
	if filter.StudentID != nil {
		b = b.Where(squirrel.Eq{"student_id": *filter.StudentID})
	}
	if filter.DriveID != nil {
		b = b.Where(squirrel.Eq{"drive_id": *filter.DriveID})
	}

	query, args, err := b.OrderBy("vaccination_date DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building record list: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing vaccination records: %w", err)
	}
	defer rows.Close()

	records := []*models.VaccinationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning vaccination record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *RecordRepository) exists(ctx context.Context, column string, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM vaccination_records WHERE ` + column + ` = $1)`
	if err := db.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking vaccination records: %w", err)
	}
	return exists, nil
}

// ExistsForStudent reports whether the student has any record
func (r *RecordRepository) ExistsForStudent(ctx context.Context, studentID int64) (bool, error) {
	return r.exists(ctx, "student_id", studentID)
}

// ExistsForDrive reports whether the drive has any record
func (r *RecordRepository) ExistsForDrive(ctx context.Context, driveID int64) (bool, error) {
	return r.exists(ctx, "drive_id", driveID)
}

// ExistsForPair reports whether the (student, drive) pair already has a record
func (r *RecordRepository) ExistsForPair(ctx context.Context, studentID, driveID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM vaccination_records WHERE student_id = $1 AND drive_id = $2)`
	if err := db.Conn(ctx, r.db).QueryRow(ctx, query, studentID, driveID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking vaccination records: %w", err)
	}
	return exists, nil
}
