package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
)

func TestCreateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.students.CreateStudent(ctx, admin, &dto.CreateStudentRequest{
		FirstName:   " Asha ",
		LastName:    "Rao",
		Grade:       "6",
		Email:       "asha@example.com",
		DateOfBirth: "2014-08-21",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^ST-2606-\d{4}$`, resp.StudentID)
	assert.Equal(t, "Asha", resp.FirstName)
	require.NotNil(t, resp.DateOfBirth)
	assert.Equal(t, "2014-08-21", *resp.DateOfBirth)

	_, err = f.students.CreateStudent(ctx, admin, &dto.CreateStudentRequest{
		StudentID: resp.StudentID, FirstName: "Other", LastName: "Kid", Grade: "6",
	})
	assert.ErrorIs(t, err, apperrors.ErrStudentIDAlreadyExists)

	_, err = f.students.CreateStudent(ctx, admin, &dto.CreateStudentRequest{
		FirstName: "Future", LastName: "Kid", Grade: "6", DateOfBirth: "2026-06-11",
	})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	assert.Equal(t, []models.ActivityAction{models.ActionCreateStudent}, f.events.actions())
}

func TestUpdateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.student("ST-A", "Asha")
	f.student("ST-B", "Bilal")

	resp, err := f.students.UpdateStudent(ctx, admin, id, &dto.UpdateStudentRequest{
		Grade: strPtr("7"),
		Email: strPtr("asha@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "7", resp.Grade)
	assert.Equal(t, "Asha", resp.FirstName)
	require.NotNil(t, resp.Email)

	resp, err = f.students.UpdateStudent(ctx, admin, id, &dto.UpdateStudentRequest{Email: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, resp.Email, "blank clears the column")

	_, err = f.students.UpdateStudent(ctx, admin, id, &dto.UpdateStudentRequest{StudentID: strPtr("ST-B")})
	assert.ErrorIs(t, err, apperrors.ErrStudentIDAlreadyExists)

	_, err = f.students.UpdateStudent(ctx, admin, id, &dto.UpdateStudentRequest{FirstName: strPtr(" ")})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	_, err = f.students.UpdateStudent(ctx, admin, 999, &dto.UpdateStudentRequest{Grade: strPtr("7")})
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestDeleteStudent_WithRecordsConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drive := f.drive(20, 5, 0, models.DriveStatusScheduled)
	vaccinated := f.student("ST-A", "Asha")
	other := f.student("ST-B", "Bilal")
	_, err := f.records.RecordVaccination(ctx, admin, &dto.CreateRecordRequest{StudentID: vaccinated, DriveID: drive})
	require.NoError(t, err)

	err = f.students.DeleteStudent(ctx, admin, vaccinated)
	assert.ErrorIs(t, err, apperrors.ErrStudentHasRecords)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	require.NoError(t, f.students.DeleteStudent(ctx, admin, other))
	_, err = f.students.GetStudent(ctx, other)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestListStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drive := f.drive(20, 5, 0, models.DriveStatusScheduled)
	a := f.student("ST-A", "Asha")
	f.student("ST-B", "Bilal")
	f.student("ST-C", "Chen")
	_, err := f.records.RecordVaccination(ctx, admin, &dto.CreateRecordRequest{StudentID: a, DriveID: drive})
	require.NoError(t, err)

	vaccinated, err := f.students.ListStudents(ctx, models.StudentFilter{VaccinationStatus: models.VaccinationStatusVaccinated})
	require.NoError(t, err)
	require.Len(t, vaccinated.Students, 1)
	assert.Equal(t, "ST-A", vaccinated.Students[0].StudentID)

	pending, err := f.students.ListStudents(ctx, models.StudentFilter{VaccinationStatus: models.VaccinationStatusNotVaccinated})
	require.NoError(t, err)
	assert.EqualValues(t, 2, pending.Total)

	search, err := f.students.ListStudents(ctx, models.StudentFilter{Search: " chen "})
	require.NoError(t, err)
	require.Len(t, search.Students, 1)

	paged, err := f.students.ListStudents(ctx, models.StudentFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Students, 1)
	assert.EqualValues(t, 3, paged.Total)
	assert.EqualValues(t, 2, paged.Pagination.TotalPages)

	_, err = f.students.ListStudents(ctx, models.StudentFilter{VaccinationStatus: "partial"})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
}

func TestImportStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	csv := "Student ID,First Name,Last Name,Grade,Date of Birth\n" +
		"ST-100,Asha,Rao,5,2015-02-01\n" +
		"\n" +
		",Bilal,Khan,6,not-a-date\n"

	resp, err := f.students.ImportStudents(ctx, admin, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	list, err := f.students.ListStudents(ctx, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, list.Students, 2)
	assert.Equal(t, "Khan", list.Students[0].LastName)
	assert.Nil(t, list.Students[0].DateOfBirth)
	assert.NotEmpty(t, list.Students[0].StudentID)

	logs := f.store.ActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Imported 2 students from CSV", logs[0].Description)
}

func TestImportStudents_FailingRowRejectsFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student("ST-100", "Existing")

	csv := "studentId,firstName,lastName,grade\n" +
		"ST-200,Asha,Rao,5\n" +
		"ST-100,Bilal,Khan,6\n"

	_, err := f.students.ImportStudents(ctx, admin, strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrResourceAlreadyExists)
	var ce *apperrors.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 3, ce.Details["line"])

	list, err := f.students.ListStudents(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total, "nothing from the file is kept")

	_, err = f.students.ImportStudents(ctx, admin, strings.NewReader("name,grade\nAsha,5\n"))
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	_, err = f.students.ImportStudents(ctx, admin, strings.NewReader("firstName,lastName,grade\nAsha,,5\n"))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Details["line"])
}
