package repositories

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/db"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// ReportRepository runs the read-only aggregates behind the dashboard and reports
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{
		db: db,
	}
}

// DashboardStats counts students, vaccinated students and upcoming drives
func (r *ReportRepository) DashboardStats(ctx context.Context, today time.Time) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(DISTINCT student_id) FROM vaccination_records),
			(SELECT COUNT(*) FROM vaccination_drives WHERE status = $1 AND drive_date >= $2)
	`, models.DriveStatusScheduled, today).Scan(&stats.TotalStudents, &stats.Vaccinated, &stats.UpcomingDrives)
	if err != nil {
		return nil, fmt.Errorf("error loading dashboard stats: %w", err)
	}

	stats.Pending = stats.TotalStudents - stats.Vaccinated
	if stats.Pending < 0 {
		stats.Pending = 0
	}
	return &stats, nil
}

// GradeProgress returns, per grade, the share of students with at least one record
func (r *ReportRepository) GradeProgress(ctx context.Context) ([]models.GradeProgress, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT s.grade,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM vaccination_records vr WHERE vr.student_id = s.id)) AS vaccinated
		FROM students s
		GROUP BY s.grade
		ORDER BY s.grade
	`)
	if err != nil {
		return nil, fmt.Errorf("error loading grade progress: %w", err)
	}
	defer rows.Close()

	progress := []models.GradeProgress{}
	for rows.Next() {
		var p models.GradeProgress
		if err := rows.Scan(&p.Grade, &p.Total, &p.Vaccinated); err != nil {
			return nil, fmt.Errorf("error scanning grade progress: %w", err)
		}
		p.Percentage = Percentage(p.Vaccinated, p.Total)
		progress = append(progress, p)
	}

	return progress, rows.Err()
}

// Percentage is vaccinated/total rounded to the nearest whole percent
func Percentage(vaccinated, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(vaccinated) * 100 / float64(total)))
}

// reportBase joins each student with their most recent vaccination, if any
const reportBase = `(
	SELECT s.id, s.student_id, s.first_name, s.last_name, s.grade,
		latest.vaccination_date, latest.vaccine_name
	FROM students s
	LEFT JOIN LATERAL (
		SELECT vr.vaccination_date, d.vaccine_name
		FROM vaccination_records vr
		JOIN vaccination_drives d ON d.id = vr.drive_id
		WHERE vr.student_id = s.id
		ORDER BY vr.vaccination_date DESC, vr.id DESC
		LIMIT 1
	) latest ON TRUE
) rpt`

func applyReportFilter(b squirrel.SelectBuilder, filter models.ReportFilter) squirrel.SelectBuilder {
	if strings.TrimSpace(filter.Name) != "" {
		pattern := helpers.LikePattern(filter.Name)
		b = b.Where(squirrel.Or{
			squirrel.ILike{"rpt.first_name": pattern},
			squirrel.ILike{"rpt.last_name": pattern},
			squirrel.ILike{"rpt.first_name || ' ' || rpt.last_name": pattern},
		})
	}
	if !models.IsAllFilter(filter.Grade) {
		b = b.Where(squirrel.Eq{"rpt.grade": filter.Grade})
	}
	if !models.IsAllFilter(filter.Vaccine) {
		b = b.Where("LOWER(rpt.vaccine_name) = LOWER(?)", filter.Vaccine)
	}
	switch filter.Status {
	case models.VaccinationStatusVaccinated:
		b = b.Where("rpt.vaccination_date IS NOT NULL")
	case models.VaccinationStatusNotVaccinated:
		b = b.Where("rpt.vaccination_date IS NULL")
	}
	return b
}

// VaccinationReport returns one row per matching student. A zero Limit returns every row.
func (r *ReportRepository) VaccinationReport(ctx context.Context, filter models.ReportFilter) ([]*models.ReportRow, int64, error) {
	conn := db.Conn(ctx, r.db)

	countQuery, countArgs, err := applyReportFilter(psql.Select("COUNT(*)").From(reportBase), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building report count: %w", err)
	}

	var total int64
	if err := conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting report rows: %w", err)
	}

	b := applyReportFilter(psql.Select(
		"rpt.id", "rpt.student_id", "rpt.first_name", "rpt.last_name", "rpt.grade",
		"rpt.vaccination_date", "rpt.vaccine_name",
	).From(reportBase), filter).OrderBy("rpt.grade ASC", "rpt.last_name ASC", "rpt.first_name ASC", "rpt.id ASC")
	if filter.Limit > 0 {
		offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Limit)
		b = b.Limit(limit).Offset(offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building report query: %w", err)
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error loading report: %w", err)
	}
	defer rows.Close()

	report := []*models.ReportRow{}
	for rows.Next() {
		var (
			row                 models.ReportRow
			firstName, lastName string
		)
		if err := rows.Scan(&row.StudentDBID, &row.StudentID, &firstName, &lastName, &row.Grade, &row.VaccinationDate, &row.VaccineName); err != nil {
			return nil, 0, fmt.Errorf("error scanning report row: %w", err)
		}
		row.Name = strings.TrimSpace(firstName + " " + lastName)
		row.Vaccinated = row.VaccinationDate != nil
		if row.VaccinationDate != nil {
			d := helpers.NormalizeDate(*row.VaccinationDate)
			row.VaccinationDate = &d
		}
		report = append(report, &row)
	}

	return report, total, rows.Err()
}
