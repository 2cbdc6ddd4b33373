package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/repositories"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// ReportService builds the per-student vaccination report
type ReportService interface {
	VaccinationReport(ctx context.Context, filter models.ReportFilter) (*dto.ReportResponse, error)
	// WriteVaccinationCSV writes every matching row, ignoring pagination
	WriteVaccinationCSV(ctx context.Context, filter models.ReportFilter, w io.Writer) error
}

type reportServiceImpl struct {
	reportRepo repositories.IReportRepository
}

// NewReportService creates a new ReportService
func NewReportService(reportRepo repositories.IReportRepository) ReportService {
	return &reportServiceImpl{reportRepo: reportRepo}
}

func normalizeReportFilter(filter models.ReportFilter) (models.ReportFilter, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	filter.Vaccine = strings.TrimSpace(filter.Vaccine)

	switch filter.Status {
	case "", models.VaccinationStatusAll, models.VaccinationStatusVaccinated, models.VaccinationStatusNotVaccinated:
	default:
		return filter, apperrors.NewValidationError(fmt.Sprintf("Unknown vaccination status %q", filter.Status))
	}
	return filter, nil
}

// VaccinationReport returns one page of report rows
func (s *reportServiceImpl) VaccinationReport(ctx context.Context, filter models.ReportFilter) (*dto.ReportResponse, error) {
	filter, err := normalizeReportFilter(filter)
	if err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = helpers.NormalizePage(filter.Page, filter.Limit)

	rows, total, err := s.reportRepo.VaccinationReport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error building vaccination report: %w", err)
	}

	out := make([]dto.ReportRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromReportRow(r))
	}

	return &dto.ReportResponse{
		Rows:       out,
		Total:      total,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.Limit),
	}, nil
}

// WriteVaccinationCSV streams the full report as CSV with a header row
func (s *reportServiceImpl) WriteVaccinationCSV(ctx context.Context, filter models.ReportFilter, w io.Writer) error {
	filter, err := normalizeReportFilter(filter)
	if err != nil {
		return err
	}
	filter.Page, filter.Limit = 1, 0

	rows, _, err := s.reportRepo.VaccinationReport(ctx, filter)
	if err != nil {
		return fmt.Errorf("error building vaccination report: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(dto.ReportCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(dto.FromReportRow(r).CSVRecord()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
