package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/services"
)

// AdminUsername is the account created on first start
const AdminUsername = "admin"

// Services are the application services the seeder writes through
type Services struct {
	Auth    services.AuthService
	Student services.StudentService
	Drive   services.DriveService
}

// Options control what gets seeded
type Options struct {
	AdminPassword string
	SampleData    bool
	// Today and LeadDays place the sample drive on a date the lead rule accepts
	Today    time.Time
	LeadDays int
}

var systemActor = models.Actor{Username: "system", Role: models.RoleAdmin}

var sampleStudents = []dto.CreateStudentRequest{
	{FirstName: "Asha", LastName: "Rao", Grade: "5", DateOfBirth: "2015-03-14", ParentContact: "+91 98765 43210"},
	{FirstName: "Vikram", LastName: "Menon", Grade: "5", DateOfBirth: "2015-07-02"},
	{FirstName: "Meera", LastName: "Iyer", Grade: "6", DateOfBirth: "2014-11-23", Email: "meera.iyer@example.com"},
	{FirstName: "Kabir", LastName: "Shah", Grade: "7", DateOfBirth: "2013-05-09"},
}

// CreateDefaultData makes sure the administrator exists and, when asked,
// adds a few students and one scheduled drive to an empty database.
func CreateDefaultData(ctx context.Context, svc Services, opts Options, lgr zerolog.Logger) error {
	if opts.AdminPassword == "" {
		return errors.New("seed: admin password is empty")
	}

	created, err := svc.Auth.EnsureUser(ctx, AdminUsername, opts.AdminPassword, "School Administrator", models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if created {
		lgr.Info().Str("username", AdminUsername).Msg("Default administrator created")
	} else {
		lgr.Debug().Str("username", AdminUsername).Msg("Default administrator already present")
	}

	if !opts.SampleData {
		return nil
	}
	return createSampleData(ctx, svc, opts, lgr)
}

func createSampleData(ctx context.Context, svc Services, opts Options, lgr zerolog.Logger) error {
	existing, err := svc.Student.ListStudents(ctx, models.StudentFilter{Page: 1, Limit: 1})
	if err != nil {
		return fmt.Errorf("seed: count students: %w", err)
	}
	if existing.Total > 0 {
		lgr.Debug().Int64("students", existing.Total).Msg("Sample data skipped, students already present")
		return nil
	}

	var finalErr error
	for i := range sampleStudents {
		req := sampleStudents[i]
		if _, err := svc.Student.CreateStudent(ctx, systemActor, &req); err != nil {
			lgr.Error().Err(err).Str("student", req.FirstName+" "+req.LastName).Msg("Error creating sample student")
			finalErr = errors.Join(finalErr, err)
		}
	}

	leadDays := opts.LeadDays
	if leadDays <= 0 {
		leadDays = services.DefaultDriveRules.LeadDays
	}
	driveDate := opts.Today.AddDate(0, 0, leadDays+15)
	drive := &dto.CreateDriveRequest{
		VaccineName:      "MMR Booster",
		DriveDate:        driveDate.Format(time.DateOnly),
		ApplicableGrades: "5,6",
		AvailableDoses:   50,
		Notes:            "Sample drive",
	}
	if _, err := svc.Drive.CreateDrive(ctx, systemActor, drive); err != nil {
		lgr.Error().Err(err).Msg("Error creating sample drive")
		finalErr = errors.Join(finalErr, err)
	}

	if finalErr == nil {
		lgr.Info().Int("students", len(sampleStudents)).Msg("Sample data created")
	}
	return finalErr
}
