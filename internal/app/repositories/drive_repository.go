package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/db"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/dberrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// DriveRepository handles database operations for vaccination drives
type DriveRepository struct {
	db *pgxpool.Pool
}

// NewDriveRepository creates a new drive repository
func NewDriveRepository(db *pgxpool.Pool) *DriveRepository {
	return &DriveRepository{
		db: db,
	}
}

var driveColumns = []string{
	"d.id", "d.drive_id", "d.vaccine_name", "d.drive_date", "d.applicable_grades",
	"d.available_doses", "d.used_doses", "d.status", "d.notes", "d.created_at",
}

func scanDrive(row scanner) (*models.VaccinationDrive, error) {
	var d models.VaccinationDrive
	if err := row.Scan(
		&d.ID,
		&d.DriveID,
		&d.VaccineName,
		&d.DriveDate,
		&d.ApplicableGrades,
		&d.AvailableDoses,
		&d.UsedDoses,
		&d.Status,
		&d.Notes,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.DriveDate = helpers.NormalizeDate(d.DriveDate)
	return &d, nil
}

// Create inserts a new drive
func (r *DriveRepository) Create(ctx context.Context, d *models.VaccinationDrive) error {
	query, args, err := psql.Insert("vaccination_drives").
		Columns("drive_id", "vaccine_name", "drive_date", "applicable_grades", "available_doses", "used_doses", "status", "notes").
		Values(d.DriveID, d.VaccineName, d.DriveDate, d.ApplicableGrades, d.AvailableDoses, d.UsedDoses, d.Status, d.Notes).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building drive insert: %w", err)
	}

	if err := db.Conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "vaccination_drives_drive_id_key") {
			return apperrors.ErrDriveIDAlreadyExists
		}
		return fmt.Errorf("error creating vaccination drive: %w", err)
	}

	return nil
}

func (r *DriveRepository) getOne(ctx context.Context, id int64, forUpdate bool) (*models.VaccinationDrive, error) {
	b := psql.Select(driveColumns...).From("vaccination_drives d").Where(squirrel.Eq{"d.id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building drive query: %w", err)
	}

	d, err := scanDrive(db.Conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDriveNotFound
		}
		return nil, fmt.Errorf("error retrieving vaccination drive: %w", err)
	}

	return d, nil
}

// GetByID retrieves a drive by ID
func (r *DriveRepository) GetByID(ctx context.Context, id int64) (*models.VaccinationDrive, error) {
	return r.getOne(ctx, id, false)
}

// GetByIDForUpdate retrieves a drive and locks its row; call it inside a transaction
func (r *DriveRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.VaccinationDrive, error) {
	return r.getOne(ctx, id, true)
}

// Update writes the editable columns of d. The dose counter is never
// written here; only the conditional increment and decrement touch it.
func (r *DriveRepository) Update(ctx context.Context, d *models.VaccinationDrive) error {
	query, args, err := psql.Update("vaccination_drives").
		SetMap(map[string]interface{}{
			"vaccine_name":      d.VaccineName,
			"drive_date":        d.DriveDate,
			"applicable_grades": d.ApplicableGrades,
			"available_doses":   d.AvailableDoses,
			"status":            d.Status,
			"notes":             d.Notes,
		}).
		Where(squirrel.Eq{"id": d.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building drive update: %w", err)
	}

	tag, err := db.Conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		if dberrors.IsCheckViolation(err, "vaccination_drives_dose_bounds") {
			return apperrors.NewValidationError("Available doses cannot be less than used doses")
		}
		return fmt.Errorf("error updating vaccination drive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDriveNotFound
	}

	return nil
}

// UpdateStatus sets the status column only
func (r *DriveRepository) UpdateStatus(ctx context.Context, id int64, status models.DriveStatus) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `UPDATE vaccination_drives SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("error updating vaccination drive status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDriveNotFound
	}
	return nil
}

// Delete removes a drive; drives with vaccination records are kept
func (r *DriveRepository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM vaccination_drives WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrDriveHasRecords
		}
		return fmt.Errorf("error deleting vaccination drive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDriveNotFound
	}
	return nil
}

// applyDriveFilter adds the listing conditions shared by the page and count queries.
// Status compares against the settled status, so a scheduled drive whose
// date has passed lists as completed.
func applyDriveFilter(b squirrel.SelectBuilder, filter models.DriveFilter) squirrel.SelectBuilder {
	if filter.Search != "" {
		b = b.Where(squirrel.ILike{"d.vaccine_name": helpers.LikePattern(filter.Search)})
	}

	open := []string{string(models.DriveStatusPlanning), string(models.DriveStatusScheduled)}
	switch filter.Status {
	case models.DriveStatusCompleted:
		b = b.Where(squirrel.Or{
			squirrel.Eq{"d.status": string(models.DriveStatusCompleted)},
			squirrel.And{squirrel.Eq{"d.status": open}, squirrel.Lt{"d.drive_date": filter.Today}},
		})
	case models.DriveStatusPlanning, models.DriveStatusScheduled:
		b = b.Where(squirrel.Eq{"d.status": string(filter.Status)}).
			Where(squirrel.GtOrEq{"d.drive_date": filter.Today})
	case models.DriveStatusCancelled:
		b = b.Where(squirrel.Eq{"d.status": string(filter.Status)})
	}

	if filter.StartDate != nil {
		b = b.Where(squirrel.GtOrEq{"d.drive_date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		b = b.Where(squirrel.LtOrEq{"d.drive_date": *filter.EndDate})
	}

	return b
}

func (r *DriveRepository) queryDrives(ctx context.Context, b squirrel.SelectBuilder) ([]*models.VaccinationDrive, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building drive list: %w", err)
	}

	rows, err := db.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing vaccination drives: %w", err)
	}
	defer rows.Close()

	var drives []*models.VaccinationDrive
	for rows.Next() {
		d, err := scanDrive(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning vaccination drive: %w", err)
		}
		drives = append(drives, d)
	}

	return drives, rows.Err()
}

// List returns one page of drives, newest date first, and the total match count
func (r *DriveRepository) List(ctx context.Context, filter models.DriveFilter) ([]*models.VaccinationDrive, int64, error) {
	countQuery, countArgs, err := applyDriveFilter(psql.Select("COUNT(*)").From("vaccination_drives d"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building drive count: %w", err)
	}

	var total int64
	if err := db.Conn(ctx, r.db).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting vaccination drives: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Limit)
	drives, err := r.queryDrives(ctx, applyDriveFilter(psql.Select(driveColumns...).From("vaccination_drives d"), filter).
		OrderBy("d.drive_date DESC", "d.id DESC").
		Limit(limit).
		Offset(offset))
	if err != nil {
		return nil, 0, err
	}

	return drives, total, nil
}

// ListUpcoming returns scheduled drives dated within [from, to], soonest first
func (r *DriveRepository) ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]*models.VaccinationDrive, error) {
	return r.queryDrives(ctx, psql.Select(driveColumns...).From("vaccination_drives d").
		Where(squirrel.Eq{"d.status": string(models.DriveStatusScheduled)}).
		Where(squirrel.GtOrEq{"d.drive_date": from}).
		Where(squirrel.LtOrEq{"d.drive_date": to}).
		OrderBy("d.drive_date ASC", "d.id ASC").
		Limit(uint64(limit)))
}

// CompletePast marks every open drive dated before today as completed
func (r *DriveRepository) CompletePast(ctx context.Context, today time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE vaccination_drives
		SET status = $1
		WHERE status IN ($2, $3) AND drive_date < $4
	`, models.DriveStatusCompleted, models.DriveStatusPlanning, models.DriveStatusScheduled, today)
	if err != nil {
		return 0, fmt.Errorf("error completing past drives: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DriveIDExists reports whether the human-readable ID is taken
func (r *DriveRepository) DriveIDExists(ctx context.Context, driveID string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vaccination_drives WHERE drive_id = $1)`, driveID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking drive id: %w", err)
	}
	return exists, nil
}

// IncrementUsedDoses consumes one dose if any remain. The check and the
// write are a single statement, so concurrent callers cannot overshoot.
func (r *DriveRepository) IncrementUsedDoses(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE vaccination_drives
		SET used_doses = used_doses + 1
		WHERE id = $1 AND used_doses < available_doses
	`, id)
	if err != nil {
		return false, fmt.Errorf("error incrementing used doses: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DecrementUsedDoses returns one dose, never going below zero
func (r *DriveRepository) DecrementUsedDoses(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE vaccination_drives
		SET used_doses = used_doses - 1
		WHERE id = $1 AND used_doses > 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("error decrementing used doses: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
