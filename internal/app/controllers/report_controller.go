package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/services"
	"github.com/yigit/vaxportal/internal/middleware"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// ReportController serves the vaccination report
type ReportController struct {
	reportService services.ReportService
	now           helpers.Clock
}

// NewReportController creates a new ReportController
func NewReportController(reportService services.ReportService, now helpers.Clock) *ReportController {
	return &ReportController{reportService: reportService, now: now}
}

func wantsCSV(ctx *gin.Context) bool {
	if strings.EqualFold(ctx.Query("format"), "csv") {
		return true
	}
	return strings.Contains(ctx.GetHeader("Accept"), "text/csv")
}

// VaccinationReport returns the per-student report
// @Summary Vaccination report
// @Description One row per student with the latest vaccination. With format=csv (or Accept: text/csv) every matching row is returned as a CSV download.
// @Tags reports
// @Produce json
// @Produce text/csv
// @Security BearerAuth
// @Param name query string false "Student name contains"
// @Param grade query string false "Grade"
// @Param vaccine query string false "Vaccine name"
// @Param status query string false "all, vaccinated or not_vaccinated"
// @Param format query string false "json or csv"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.ReportResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /reports/vaccinations [get]
func (c *ReportController) VaccinationReport(ctx *gin.Context) {
	page, limit := helpers.ParsePaginationParams(ctx)
	filter := models.ReportFilter{
		Name:    ctx.Query("name"),
		Grade:   strings.TrimSpace(ctx.Query("grade")),
		Vaccine: ctx.Query("vaccine"),
		Status:  strings.TrimSpace(ctx.Query("status")),
		Page:    page,
		Limit:   limit,
	}

	if wantsCSV(ctx) {
		c.writeCSV(ctx, filter)
		return
	}

	report, err := c.reportService.VaccinationReport(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, report)
}

func (c *ReportController) writeCSV(ctx *gin.Context, filter models.ReportFilter) {
	var buf strings.Builder
	if err := c.reportService.WriteVaccinationCSV(ctx.Request.Context(), filter, &buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	filename := fmt.Sprintf("vaccination-report-%s.csv", helpers.FormatDate(c.now()))
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(buf.String()))
}
