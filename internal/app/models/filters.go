package models

import "time"

// Vaccination status filter values shared by student listing and reports
const (
	VaccinationStatusAll           = "all"
	VaccinationStatusVaccinated    = "vaccinated"
	VaccinationStatusNotVaccinated = "not_vaccinated"
)

// StudentFilter narrows a student listing
type StudentFilter struct {
	Search            string
	Grade             string
	VaccinationStatus string
	Page              int
	Limit             int
}

// DriveFilter narrows a drive listing. Status matches the settled status
// as of Today.
type DriveFilter struct {
	Search    string
	Status    DriveStatus
	Today     time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// RecordFilter narrows a vaccination record listing
type RecordFilter struct {
	StudentID *int64
	DriveID   *int64
}

// ReportFilter narrows the vaccination report. A zero Limit returns every row.
type ReportFilter struct {
	Name    string
	Grade   string
	Vaccine string
	Status  string
	Page    int
	Limit   int
}

// IsAllFilter reports whether v means "no filter"
func IsAllFilter(v string) bool {
	switch v {
	case "", "all", "All", "All Grades", "All Status":
		return true
	}
	return false
}
