package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
)

// seedProgress records one of two grade 5 students and none of grade 6
func seedProgress(t *testing.T, f *fixture) (drive int64) {
	t.Helper()
	drive = f.drive(20, 10, 0, models.DriveStatusScheduled)
	a := f.student("ST-A", "Asha")
	f.student("ST-B", "Bilal")
	f.store.PutStudent(models.Student{StudentID: "ST-C", FirstName: "Chen", LastName: "Li", Grade: "6"})

	_, err := f.records.RecordVaccination(context.Background(), admin, &dto.CreateRecordRequest{StudentID: a, DriveID: drive})
	require.NoError(t, err)
	return drive
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProgress(t, f)
	f.drive(5, 10, 0, models.DriveStatusScheduled)
	f.drive(40, 10, 0, models.DriveStatusScheduled)
	f.drive(3, 10, 0, models.DriveStatusCancelled)

	svc := NewDashboardService(f.store.Reports(), f.store.Drives(), f.store.Activity(), f.calendar, DriveRules{})

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardStatsResponse{TotalStudents: 3, Vaccinated: 1, UpcomingDrives: 3, Pending: 2}, *stats)

	progress, err := svc.VaccinationProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, []dto.GradeProgressResponse{{Grade: "5", Percentage: 50}, {Grade: "6", Percentage: 0}}, progress)

	upcoming, err := svc.UpcomingDrives(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2, "only scheduled drives inside the window")
	assert.Equal(t, daysOut(5), upcoming[0].DriveDate)

	activity, err := svc.RecentActivity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, string(models.ActionCreateRecord), activity[0].Action)
}

func TestVaccinationReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProgress(t, f)
	svc := NewReportService(f.store.Reports())

	all, err := svc.VaccinationReport(ctx, models.ReportFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)

	done, err := svc.VaccinationReport(ctx, models.ReportFilter{Status: models.VaccinationStatusVaccinated, Vaccine: "mmr"})
	require.NoError(t, err)
	require.Len(t, done.Rows, 1)
	assert.Equal(t, dto.ReportStatusVaccinated, done.Rows[0].VaccinationStatus)
	require.NotNil(t, done.Rows[0].VaccineName)
	assert.Equal(t, "MMR", *done.Rows[0].VaccineName)

	grade6, err := svc.VaccinationReport(ctx, models.ReportFilter{Grade: "6"})
	require.NoError(t, err)
	require.Len(t, grade6.Rows, 1)
	assert.Nil(t, grade6.Rows[0].VaccinationDate)

	_, err = svc.VaccinationReport(ctx, models.ReportFilter{Status: "maybe"})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
}

func TestWriteVaccinationCSV_IgnoresPagination(t *testing.T) {
	f := newFixture(t)
	seedProgress(t, f)
	svc := NewReportService(f.store.Reports())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteVaccinationCSV(context.Background(), models.ReportFilter{Page: 2, Limit: 1}, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, dto.ReportCSVHeader, records[0])
	assert.Equal(t, []string{"ST-A", "Asha Test", "5", "Vaccinated", "2026-06-10", "MMR"}, records[1])
}
