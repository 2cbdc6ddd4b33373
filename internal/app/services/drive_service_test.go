package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func daysOut(n int) string {
	return helpers.FormatDate(today.AddDate(0, 0, n))
}

func createReq(date string) *dto.CreateDriveRequest {
	return &dto.CreateDriveRequest{
		VaccineName:      "  Polio ",
		DriveDate:        date,
		ApplicableGrades: "5, 6,7",
		AvailableDoses:   50,
	}
}

func TestCreateDrive_LeadTimeBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.drives.CreateDrive(ctx, admin, createReq(daysOut(15)))
	require.NoError(t, err)
	assert.Equal(t, "Polio", resp.VaccineName)
	assert.Equal(t, daysOut(15), resp.DriveDate)
	assert.Equal(t, "5,6,7", resp.ApplicableGrades)
	assert.Equal(t, 0, resp.UsedDoses)
	assert.Equal(t, 50, resp.RemainingDoses)
	assert.Equal(t, string(models.DriveStatusScheduled), resp.Status)
	assert.Regexp(t, `^DR-2026-06\d{3}$`, resp.DriveID)

	_, err = f.drives.CreateDrive(ctx, admin, createReq(daysOut(14)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.Equal(t, "Vaccination drive must be scheduled at least 15 days in advance", err.Error())

	assert.Equal(t, []models.ActivityAction{models.ActionCreateDrive}, f.events.actions())
	logs := f.store.ActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Created new vaccination drive: Polio on "+daysOut(15), logs[0].Description)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, admin.UserID, *logs[0].UserID)
}

func TestCreateDrive_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *dto.CreateDriveRequest)
	}{
		{"blank vaccine", func(r *dto.CreateDriveRequest) { r.VaccineName = "  " }},
		{"bad date", func(r *dto.CreateDriveRequest) { r.DriveDate = "20-11-2026" }},
		{"bad grades", func(r *dto.CreateDriveRequest) { r.ApplicableGrades = " , " }},
		{"no doses", func(r *dto.CreateDriveRequest) { r.AvailableDoses = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createReq(daysOut(30))
			tt.mutate(req)
			_, err := f.drives.CreateDrive(ctx, admin, req)
			assert.True(t, errors.Is(err, apperrors.ErrValidationFailed), "got %v", err)
		})
	}
	assert.Empty(t, f.store.ActivityLogs())
}

func TestCreateDrive_SuppliedAndGeneratedIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := createReq(daysOut(20))
	req.DriveID = "DR-CUSTOM"
	_, err := f.drives.CreateDrive(ctx, admin, req)
	require.NoError(t, err)

	_, err = f.drives.CreateDrive(ctx, admin, req)
	assert.ErrorIs(t, err, apperrors.ErrDriveIDAlreadyExists)

	// the first draw collides with an existing drive, the second is free
	f.store.PutDrive(models.VaccinationDrive{DriveID: "DR-2026-06100", DriveDate: today, AvailableDoses: 1, Status: models.DriveStatusScheduled})
	draws := []int{0, 1}
	f.drives.intn = func(int) int {
		n := draws[0]
		draws = draws[1:]
		return n
	}
	resp, err := f.drives.CreateDrive(ctx, admin, createReq(daysOut(20)))
	require.NoError(t, err)
	assert.Equal(t, "DR-2026-06101", resp.DriveID)

	f.drives.intn = func(int) int { return 0 }
	_, err = f.drives.CreateDrive(ctx, admin, createReq(daysOut(20)))
	assert.Error(t, err)
}

func TestUpdateDrive_DateInsideLeadWindowLeavesDriveUnchanged(t *testing.T) {
	f := newFixture(t)
	id := f.drive(20, 10, 0, models.DriveStatusScheduled)

	_, err := f.drives.UpdateDrive(context.Background(), admin, id, &dto.UpdateDriveRequest{
		DriveDate:   strPtr(daysOut(5)),
		VaccineName: strPtr("Changed"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	stored, _ := f.store.Drive(id)
	assert.Equal(t, today.AddDate(0, 0, 20), stored.DriveDate)
	assert.Equal(t, "MMR", stored.VaccineName)
	assert.Empty(t, f.store.ActivityLogs())
}

func TestUpdateDrive_UnchangedDateSkipsLeadCheck(t *testing.T) {
	f := newFixture(t)
	id := f.drive(3, 10, 0, models.DriveStatusScheduled)

	resp, err := f.drives.UpdateDrive(context.Background(), admin, id, &dto.UpdateDriveRequest{
		DriveDate:      strPtr(daysOut(3)),
		AvailableDoses: intPtr(40),
	})
	require.NoError(t, err)
	assert.Equal(t, 40, resp.AvailableDoses)
	assert.Equal(t, []models.ActivityAction{models.ActionUpdateDrive}, f.events.actions())
}

func TestUpdateDrive_PastDriveIsImmutable(t *testing.T) {
	f := newFixture(t)
	id := f.drive(-1, 10, 4, models.DriveStatusScheduled)

	_, err := f.drives.UpdateDrive(context.Background(), admin, id, &dto.UpdateDriveRequest{Notes: strPtr("late")})
	assert.ErrorIs(t, err, apperrors.ErrDriveImmutable)

	stored, _ := f.store.Drive(id)
	assert.Equal(t, models.DriveStatusCompleted, stored.Status, "settled status is persisted")
	assert.Nil(t, stored.Notes)
	assert.Empty(t, f.events.actions())
}

func TestUpdateDrive_AvailableDosesFloor(t *testing.T) {
	f := newFixture(t)
	id := f.drive(20, 10, 3, models.DriveStatusScheduled)

	_, err := f.drives.UpdateDrive(context.Background(), admin, id, &dto.UpdateDriveRequest{AvailableDoses: intPtr(2)})
	require.Error(t, err)
	var ce *apperrors.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 3, ce.Details["usedDoses"])

	resp, err := f.drives.UpdateDrive(context.Background(), admin, id, &dto.UpdateDriveRequest{AvailableDoses: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.RemainingDoses)
}

func TestUpdateDrive_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.drive(20, 10, 0, models.DriveStatusScheduled)
	_, err := f.drives.UpdateDrive(ctx, admin, id, &dto.UpdateDriveRequest{Status: strPtr("planning")})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	resp, err := f.drives.UpdateDrive(ctx, admin, id, &dto.UpdateDriveRequest{Status: strPtr("cancelled")})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)

	_, err = f.drives.UpdateDrive(ctx, admin, id, &dto.UpdateDriveRequest{Status: strPtr("scheduled")})
	assert.ErrorIs(t, err, apperrors.ErrDriveImmutable)

	_, err = f.drives.UpdateDrive(ctx, admin, id, &dto.UpdateDriveRequest{})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	_, err = f.drives.UpdateDrive(ctx, admin, 999, &dto.UpdateDriveRequest{Notes: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrDriveNotFound)
}

func TestDeleteDrive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	used := f.drive(20, 10, 0, models.DriveStatusScheduled)
	sid := f.student("ST-1", "Asha")
	_, err := f.records.RecordVaccination(ctx, admin, &dto.CreateRecordRequest{StudentID: sid, DriveID: used})
	require.NoError(t, err)

	err = f.drives.DeleteDrive(ctx, admin, used)
	assert.ErrorIs(t, err, apperrors.ErrDriveHasRecords)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	empty := f.drive(20, 10, 0, models.DriveStatusScheduled)
	require.NoError(t, f.drives.DeleteDrive(ctx, admin, empty))
	_, ok := f.store.Drive(empty)
	assert.False(t, ok)

	assert.ErrorIs(t, f.drives.DeleteDrive(ctx, admin, empty), apperrors.ErrDriveNotFound)
}

func TestListDrives_SettlesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.drive(-5, 10, 0, models.DriveStatusScheduled)
	f.drive(20, 10, 0, models.DriveStatusScheduled)
	f.drive(25, 10, 0, models.DriveStatusCancelled)

	all, err := f.drives.ListDrives(ctx, models.DriveFilter{Status: "all"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Equal(t, daysOut(25), all.Drives[0].DriveDate, "newest date first")

	completed, err := f.drives.ListDrives(ctx, models.DriveFilter{Status: models.DriveStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed.Drives, 1)
	assert.Equal(t, daysOut(-5), completed.Drives[0].DriveDate)
	assert.Equal(t, "completed", completed.Drives[0].Status)

	_, err = f.drives.ListDrives(ctx, models.DriveFilter{Status: "postponed"})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	start, end := today.AddDate(0, 0, 10), today
	_, err = f.drives.ListDrives(ctx, models.DriveFilter{StartDate: &start, EndDate: &end})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
}

func TestSettlePastDrives(t *testing.T) {
	f := newFixture(t)
	past := f.drive(-2, 10, 0, models.DriveStatusPlanning)
	f.drive(-2, 10, 0, models.DriveStatusCancelled)
	f.drive(0, 10, 0, models.DriveStatusScheduled)

	n, err := f.drives.SettlePastDrives(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stored, _ := f.store.Drive(past)
	assert.Equal(t, models.DriveStatusCompleted, stored.Status)

	resp, err := f.drives.GetDrive(context.Background(), past)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
}
