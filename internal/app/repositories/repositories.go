package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/vaxportal/internal/app/models"
)

// psql builds Postgres-flavoured statements
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// IUserRepository stores portal users
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// IStudentRepository stores students
type IStudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int64, error)
	StudentIDExists(ctx context.Context, studentID string) (bool, error)
}

// IDriveRepository stores vaccination drives and owns the dose counter
type IDriveRepository interface {
	Create(ctx context.Context, drive *models.VaccinationDrive) error
	GetByID(ctx context.Context, id int64) (*models.VaccinationDrive, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.VaccinationDrive, error)
	Update(ctx context.Context, drive *models.VaccinationDrive) error
	UpdateStatus(ctx context.Context, id int64, status models.DriveStatus) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.DriveFilter) ([]*models.VaccinationDrive, int64, error)
	ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]*models.VaccinationDrive, error)
	CompletePast(ctx context.Context, today time.Time) (int64, error)
	DriveIDExists(ctx context.Context, driveID string) (bool, error)
	// IncrementUsedDoses reports false when the drive is already full
	IncrementUsedDoses(ctx context.Context, id int64) (bool, error)
	// DecrementUsedDoses reports false when the counter is already zero
	DecrementUsedDoses(ctx context.Context, id int64) (bool, error)
}

// IRecordRepository stores vaccination records
type IRecordRepository interface {
	Create(ctx context.Context, record *models.VaccinationRecord) error
	GetByID(ctx context.Context, id int64) (*models.VaccinationRecord, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.RecordFilter) ([]*models.VaccinationRecord, error)
	ExistsForStudent(ctx context.Context, studentID int64) (bool, error)
	ExistsForDrive(ctx context.Context, driveID int64) (bool, error)
	// ExistsForPair reports whether the student already has a record in the drive
	ExistsForPair(ctx context.Context, studentID, driveID int64) (bool, error)
}

// IActivityRepository stores the audit trail
type IActivityRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

// IReportRepository answers the dashboard and report aggregates
type IReportRepository interface {
	DashboardStats(ctx context.Context, today time.Time) (*models.DashboardStats, error)
	GradeProgress(ctx context.Context) ([]models.GradeProgress, error)
	VaccinationReport(ctx context.Context, filter models.ReportFilter) ([]*models.ReportRow, int64, error)
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository     *UserRepository
	StudentRepository  *StudentRepository
	DriveRepository    *DriveRepository
	RecordRepository   *RecordRepository
	ActivityRepository *ActivityRepository
	ReportRepository   *ReportRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:     NewUserRepository(db),
		StudentRepository:  NewStudentRepository(db),
		DriveRepository:    NewDriveRepository(db),
		RecordRepository:   NewRecordRepository(db),
		ActivityRepository: NewActivityRepository(db),
		ReportRepository:   NewReportRepository(db),
	}
}

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}
