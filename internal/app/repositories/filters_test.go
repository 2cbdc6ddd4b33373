package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
)

func TestApplyStudentFilter(t *testing.T) {
	sql, args, err := applyStudentFilter(psql.Select("COUNT(*)").From("students s"), models.StudentFilter{
		Search:            "ra_o",
		Grade:             "6",
		VaccinationStatus: models.VaccinationStatusNotVaccinated,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "s.first_name ILIKE $1")
	assert.Contains(t, sql, "s.student_id ILIKE $4")
	assert.Contains(t, sql, "s.grade = $5")
	assert.Contains(t, sql, "NOT EXISTS (SELECT 1 FROM vaccination_records")
	assert.Equal(t, `%ra\_o%`, args[0])
	assert.Equal(t, "6", args[4])
}

func TestApplyStudentFilter_AllGradesIgnored(t *testing.T) {
	sql, args, err := applyStudentFilter(psql.Select("COUNT(*)").From("students s"), models.StudentFilter{Grade: "All Grades"}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

func TestApplyDriveFilter_SettledStatus(t *testing.T) {
	today := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

	sql, args, err := applyDriveFilter(psql.Select("COUNT(*)").From("vaccination_drives d"), models.DriveFilter{
		Status: models.DriveStatusCompleted,
		Today:  today,
	}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "d.status IN ($2,$3)")
	assert.Contains(t, sql, "d.drive_date < $4")
	assert.Equal(t, []interface{}{"completed", "planning", "scheduled", today}, args)

	sql, args, err = applyDriveFilter(psql.Select("COUNT(*)").From("vaccination_drives d"), models.DriveFilter{
		Search: "mmr",
		Status: models.DriveStatusScheduled,
		Today:  today,
	}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "d.vaccine_name ILIKE $1")
	assert.Contains(t, sql, "d.drive_date >= $3")
	assert.Equal(t, "%mmr%", args[0])
}

func TestApplyReportFilter(t *testing.T) {
	sql, args, err := applyReportFilter(psql.Select("COUNT(*)").From("rpt"), models.ReportFilter{
		Vaccine: "MMR",
		Status:  models.VaccinationStatusVaccinated,
		Grade:   "all",
	}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "LOWER(rpt.vaccine_name) = LOWER($1)")
	assert.Contains(t, sql, "rpt.vaccination_date IS NOT NULL")
	assert.NotContains(t, sql, "rpt.grade")
	assert.Equal(t, []interface{}{"MMR"}, args)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 100, Percentage(4, 4))
}
