package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/testutil/memstore"
)

// now is the pinned instant every service test runs at
var now = time.Date(2026, 6, 10, 9, 30, 0, 0, time.UTC)

var today = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

var admin = models.Actor{UserID: 1, Username: "admin", Role: models.RoleAdmin}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (r *eventRecorder) Publish(_ context.Context, e models.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) actions() []models.ActivityAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ActivityAction, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	events   *eventRecorder
	calendar Calendar
	drives   *driveServiceImpl
	records  *recordServiceImpl
	students *studentServiceImpl
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	events := &eventRecorder{}
	calendar := Calendar{Clock: func() time.Time { return now }, Location: time.UTC}
	logger := zerolog.Nop()

	return &fixture{
		store:    store,
		events:   events,
		calendar: calendar,
		drives: NewDriveService(store, store.Drives(), store.Records(), store.Activity(), events,
			calendar, DriveRules{}, logger).(*driveServiceImpl),
		records: NewRecordService(store, store.Students(), store.Drives(), store.Records(), store.Activity(), events,
			calendar, logger).(*recordServiceImpl),
		students: NewStudentService(store, store.Students(), store.Records(), store.Activity(), events,
			calendar, logger).(*studentServiceImpl),
	}
}

func (f *fixture) drive(daysOut, available, used int, status models.DriveStatus) int64 {
	f.seq++
	return f.store.PutDrive(models.VaccinationDrive{
		DriveID:          fmt.Sprintf("DR-TEST-%03d", f.seq),
		VaccineName:      "MMR",
		DriveDate:        today.AddDate(0, 0, daysOut),
		ApplicableGrades: "5,6",
		AvailableDoses:   available,
		UsedDoses:        used,
		Status:           status,
	})
}

func (f *fixture) student(studentID, first string) int64 {
	return f.store.PutStudent(models.Student{
		StudentID: studentID,
		FirstName: first,
		LastName:  "Test",
		Grade:     "5",
	})
}

func (f *fixture) usedDoses(t *testing.T, id int64) int {
	t.Helper()
	d, ok := f.store.Drive(id)
	if !ok {
		t.Fatalf("drive %d missing", id)
	}
	return d.UsedDoses
}
