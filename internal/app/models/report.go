package models

import "time"

// DashboardStats are the headline counters on the dashboard
type DashboardStats struct {
	TotalStudents  int64
	Vaccinated     int64
	UpcomingDrives int64
	Pending        int64
}

// GradeProgress is the share of a grade's students with at least one record
type GradeProgress struct {
	Grade      string
	Total      int64
	Vaccinated int64
	Percentage int
}

// ReportRow is one student line of the vaccination report
type ReportRow struct {
	StudentDBID     int64
	StudentID       string
	Name            string
	Grade           string
	Vaccinated      bool
	VaccinationDate *time.Time
	VaccineName     *string
}
