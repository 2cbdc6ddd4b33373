package dto

import "github.com/yigit/vaxportal/internal/app/models"

// Report status labels
const (
	ReportStatusVaccinated    = "Vaccinated"
	ReportStatusNotVaccinated = "Not Vaccinated"
)

// ReportCSVHeader is the header row of the CSV export
var ReportCSVHeader = []string{"Student ID", "Name", "Grade", "Vaccination Status", "Vaccination Date", "Vaccine Name"}

// ReportRowResponse is one student line of the vaccination report
type ReportRowResponse struct {
	ID                int64   `json:"id" example:"3"`
	StudentID         string  `json:"studentId" example:"ST-2604-1234"`
	Name              string  `json:"name" example:"Asha Rao"`
	Grade             string  `json:"grade" example:"6"`
	VaccinationStatus string  `json:"vaccinationStatus" example:"Vaccinated"`
	VaccinationDate   *string `json:"vaccinationDate,omitempty" example:"2026-11-20"`
	VaccineName       *string `json:"vaccineName,omitempty" example:"MMR"`
}

// ReportResponse is a page of report rows
type ReportResponse struct {
	Rows       []ReportRowResponse `json:"rows"`
	Total      int64               `json:"total" example:"250"`
	Pagination PaginationInfo      `json:"pagination"`
}

// FromReportRow converts a report row
func FromReportRow(r *models.ReportRow) ReportRowResponse {
	status := ReportStatusNotVaccinated
	if r.Vaccinated {
		status = ReportStatusVaccinated
	}
	return ReportRowResponse{
		ID:                r.StudentDBID,
		StudentID:         r.StudentID,
		Name:              r.Name,
		Grade:             r.Grade,
		VaccinationStatus: status,
		VaccinationDate:   formatOptionalDate(r.VaccinationDate),
		VaccineName:       r.VaccineName,
	}
}

// CSVRecord renders the row for the CSV export
func (r ReportRowResponse) CSVRecord() []string {
	date, vaccine := "", ""
	if r.VaccinationDate != nil {
		date = *r.VaccinationDate
	}
	if r.VaccineName != nil {
		vaccine = *r.VaccineName
	}
	return []string{r.StudentID, r.Name, r.Grade, r.VaccinationStatus, date, vaccine}
}
