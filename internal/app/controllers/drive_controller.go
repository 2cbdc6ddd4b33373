package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/services"
	"github.com/yigit/vaxportal/internal/middleware"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// DriveController handles vaccination drive endpoints
type DriveController struct {
	driveService services.DriveService
}

// NewDriveController creates a new DriveController
func NewDriveController(driveService services.DriveService) *DriveController {
	return &DriveController{driveService: driveService}
}

// ListDrives lists vaccination drives
// @Summary List vaccination drives
// @Description Lists drives newest date first. Status filters on the status as of today.
// @Tags vaccination-drives
// @Produce json
// @Security BearerAuth
// @Param search query string false "Vaccine name contains"
// @Param status query string false "planning, scheduled, completed, cancelled or all"
// @Param startDate query string false "Earliest drive date (YYYY-MM-DD)"
// @Param endDate query string false "Latest drive date (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.DriveListResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /vaccination-drives [get]
func (c *DriveController) ListDrives(ctx *gin.Context) {
	start, ok := parseDateQuery(ctx, "startDate")
	if !ok {
		return
	}
	end, ok := parseDateQuery(ctx, "endDate")
	if !ok {
		return
	}
	page, limit := helpers.ParsePaginationParams(ctx)

	resp, err := c.driveService.ListDrives(ctx.Request.Context(), models.DriveFilter{
		Search:    strings.TrimSpace(ctx.Query("search")),
		Status:    models.DriveStatus(strings.ToLower(strings.TrimSpace(ctx.Query("status")))),
		StartDate: start,
		EndDate:   end,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, resp)
}

// GetDrive returns one drive
// @Summary Get vaccination drive
// @Tags vaccination-drives
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drive ID"
// @Success 200 {object} dto.APIResponse{data=dto.DriveResponse}
// @Failure 404 {object} dto.ErrorResponse "Drive not found"
// @Router /vaccination-drives/{id} [get]
func (c *DriveController) GetDrive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Drive")
	if !ok {
		return
	}

	drive, err := c.driveService.GetDrive(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, drive)
}

// CreateDrive schedules a drive
// @Summary Create vaccination drive
// @Description The drive date must be at least the configured lead time (15 days by default) after today.
// @Tags vaccination-drives
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDriveRequest true "Drive"
// @Success 201 {object} dto.APIResponse{data=dto.DriveResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid drive or date too soon"
// @Router /vaccination-drives [post]
func (c *DriveController) CreateDrive(ctx *gin.Context) {
	var req dto.CreateDriveRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	drive, err := c.driveService.CreateDrive(ctx.Request.Context(), middleware.Actor(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, drive)
}

// UpdateDrive edits an open drive
// @Summary Update vaccination drive
// @Description Completed and cancelled drives, and drives whose date has passed, cannot be edited.
// @Tags vaccination-drives
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drive ID"
// @Param request body dto.UpdateDriveRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.DriveResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid update or drive no longer editable"
// @Failure 404 {object} dto.ErrorResponse "Drive not found"
// @Router /vaccination-drives/{id} [put]
func (c *DriveController) UpdateDrive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Drive")
	if !ok {
		return
	}
	var req dto.UpdateDriveRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	drive, err := c.driveService.UpdateDrive(ctx.Request.Context(), middleware.Actor(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, drive)
}

// DeleteDrive removes a drive without records
// @Summary Delete vaccination drive
// @Tags vaccination-drives
// @Produce json
// @Security BearerAuth
// @Param id path int true "Drive ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 404 {object} dto.ErrorResponse "Drive not found"
// @Failure 409 {object} dto.ErrorResponse "Drive has vaccination records"
// @Router /vaccination-drives/{id} [delete]
func (c *DriveController) DeleteDrive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Drive")
	if !ok {
		return
	}

	if err := c.driveService.DeleteDrive(ctx.Request.Context(), middleware.Actor(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondMessage(ctx, "Vaccination drive deleted successfully")
}
