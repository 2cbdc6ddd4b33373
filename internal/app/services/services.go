package services

import (
	"context"
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/db"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// Transactor runs fn in one database transaction carried by the context.
// *db.PostgresDB satisfies it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn db.TransactionFn) error
}

// ActivityPublisher receives activity events once their change has committed
type ActivityPublisher interface {
	Publish(ctx context.Context, event models.ActivityEvent)
}

// Publishers fans an event out to several publishers
type Publishers []ActivityPublisher

// Publish implements ActivityPublisher
func (p Publishers) Publish(ctx context.Context, event models.ActivityEvent) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(ctx, event)
		}
	}
}

// Calendar supplies "today" in the school's time zone
type Calendar struct {
	Clock    helpers.Clock
	Location *time.Location
}

// Today is the current calendar day as midnight UTC
func (c Calendar) Today() time.Time {
	return helpers.Today(c.Clock, c.Location)
}

// Now is the current instant
func (c Calendar) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// DriveRules are the configurable scheduling rules for drives
type DriveRules struct {
	// LeadDays is the minimum number of days between today and a drive date
	LeadDays int
	// UpcomingWindowDays bounds the dashboard's upcoming drive list
	UpcomingWindowDays int
}

// DefaultDriveRules are used when configuration leaves them unset
var DefaultDriveRules = DriveRules{LeadDays: 15, UpcomingWindowDays: 30}

func (r DriveRules) withDefaults() DriveRules {
	if r.LeadDays <= 0 {
		r.LeadDays = DefaultDriveRules.LeadDays
	}
	if r.UpcomingWindowDays <= 0 {
		r.UpcomingWindowDays = DefaultDriveRules.UpcomingWindowDays
	}
	return r
}
