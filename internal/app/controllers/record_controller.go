package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/services"
	"github.com/yigit/vaxportal/internal/middleware"
)

// RecordController handles vaccination record endpoints
type RecordController struct {
	recordService services.RecordService
}

// NewRecordController creates a new RecordController
func NewRecordController(recordService services.RecordService) *RecordController {
	return &RecordController{recordService: recordService}
}

// ListRecords lists vaccination records
// @Summary List vaccination records
// @Tags vaccination-records
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Student ID"
// @Param driveId query int false "Drive ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.RecordResponse}
// @Router /vaccination-records [get]
func (c *RecordController) ListRecords(ctx *gin.Context) {
	studentID, ok := parseOptionalIDQuery(ctx, "studentId")
	if !ok {
		return
	}
	driveID, ok := parseOptionalIDQuery(ctx, "driveId")
	if !ok {
		return
	}

	records, err := c.recordService.ListRecords(ctx.Request.Context(), models.RecordFilter{StudentID: studentID, DriveID: driveID})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, records)
}

// RecordVaccination vaccinates a student in a drive
// @Summary Record vaccination
// @Description Consumes one dose of the drive. Fails when the drive is full, has passed, or the student is already vaccinated in it.
// @Tags vaccination-records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateRecordRequest true "Record"
// @Success 201 {object} dto.APIResponse{data=dto.RecordResponse}
// @Failure 400 {object} dto.ErrorResponse "No doses left, duplicate, or drive no longer open"
// @Failure 404 {object} dto.ErrorResponse "Student or drive not found"
// @Router /vaccination-records [post]
func (c *RecordController) RecordVaccination(ctx *gin.Context) {
	var req dto.CreateRecordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	record, err := c.recordService.RecordVaccination(ctx.Request.Context(), middleware.Actor(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, record)
}

// RemoveVaccinationRecord deletes a record and returns its dose
// @Summary Delete vaccination record
// @Tags vaccination-records
// @Produce json
// @Security BearerAuth
// @Param id path int true "Record ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /vaccination-records/{id} [delete]
func (c *RecordController) RemoveVaccinationRecord(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Record")
	if !ok {
		return
	}

	if err := c.recordService.RemoveVaccinationRecord(ctx.Request.Context(), middleware.Actor(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondMessage(ctx, "Vaccination record deleted successfully")
}
