package models

import (
	"strings"
	"time"
)

// DriveStatus is the lifecycle state of a vaccination drive
type DriveStatus string

const (
	DriveStatusPlanning  DriveStatus = "planning"
	DriveStatusScheduled DriveStatus = "scheduled"
	DriveStatusCompleted DriveStatus = "completed"
	DriveStatusCancelled DriveStatus = "cancelled"
)

// driveTransitions lists the statuses reachable from each non-terminal status
var driveTransitions = map[DriveStatus][]DriveStatus{
	DriveStatusPlanning:  {DriveStatusScheduled, DriveStatusCancelled},
	DriveStatusScheduled: {DriveStatusCompleted, DriveStatusCancelled},
}

// IsValid reports whether s is a known status
func (s DriveStatus) IsValid() bool {
	switch s {
	case DriveStatusPlanning, DriveStatusScheduled, DriveStatusCompleted, DriveStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions or edits are allowed
func (s DriveStatus) IsTerminal() bool {
	return s == DriveStatusCompleted || s == DriveStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same non-terminal status is always allowed.
func (s DriveStatus) CanTransitionTo(next DriveStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	for _, allowed := range driveTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// VaccinationDrive defines the model based on the 'vaccination_drives' table
type VaccinationDrive struct {
	ID               int64       `db:"id"`
	DriveID          string      `db:"drive_id"`
	VaccineName      string      `db:"vaccine_name"`
	DriveDate        time.Time   `db:"drive_date"`
	ApplicableGrades string      `db:"applicable_grades"`
	AvailableDoses   int         `db:"available_doses"`
	UsedDoses        int         `db:"used_doses"`
	Status           DriveStatus `db:"status"`
	Notes            *string     `db:"notes"`
	CreatedAt        time.Time   `db:"created_at"`
}

// RemainingDoses is the capacity still unused
func (d *VaccinationDrive) RemainingDoses() int {
	if d.UsedDoses >= d.AvailableDoses {
		return 0
	}
	return d.AvailableDoses - d.UsedDoses
}

// Grades splits the comma-separated applicable grade list
func (d *VaccinationDrive) Grades() []string {
	return SplitGrades(d.ApplicableGrades)
}

// SettledStatus is the status the drive holds on the given day.
// A planning or scheduled drive whose date has passed is completed.
func (d *VaccinationDrive) SettledStatus(today time.Time) DriveStatus {
	if !d.Status.IsTerminal() && d.DriveDate.Before(today) {
		return DriveStatusCompleted
	}
	return d.Status
}

// Settle moves the drive to its settled status and reports whether it changed
func (d *VaccinationDrive) Settle(today time.Time) bool {
	settled := d.SettledStatus(today)
	if settled == d.Status {
		return false
	}
	d.Status = settled
	return true
}

// SplitGrades parses a comma-separated grade list, dropping blanks
func SplitGrades(list string) []string {
	parts := strings.Split(list, ",")
	grades := make([]string, 0, len(parts))
	for _, p := range parts {
		if g := strings.TrimSpace(p); g != "" {
			grades = append(grades, g)
		}
	}
	return grades
}

// JoinGrades renders grades in their stored form
func JoinGrades(grades []string) string {
	return strings.Join(SplitGrades(strings.Join(grades, ",")), ",")
}
