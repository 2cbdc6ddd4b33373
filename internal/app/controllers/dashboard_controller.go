package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/vaxportal/internal/app/services"
	"github.com/yigit/vaxportal/internal/middleware"
)

// DashboardController serves the dashboard widgets
type DashboardController struct {
	dashboardService services.DashboardService
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(dashboardService services.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// Stats returns the headline counters
// @Summary Dashboard statistics
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DashboardStatsResponse}
// @Router /dashboard/stats [get]
func (c *DashboardController) Stats(ctx *gin.Context) {
	stats, err := c.dashboardService.Stats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, stats)
}

// VaccinationProgress returns per-grade coverage
// @Summary Vaccination progress by grade
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.GradeProgressResponse}
// @Router /dashboard/vaccination-progress [get]
func (c *DashboardController) VaccinationProgress(ctx *gin.Context) {
	progress, err := c.dashboardService.VaccinationProgress(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, progress)
}

// UpcomingDrives returns the next scheduled drives
// @Summary Upcoming drives
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of drives" default(3)
// @Success 200 {object} dto.APIResponse{data=[]dto.DriveResponse}
// @Router /dashboard/upcoming-drives [get]
func (c *DashboardController) UpcomingDrives(ctx *gin.Context) {
	drives, err := c.dashboardService.UpcomingDrives(ctx.Request.Context(), limitQuery(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, drives)
}

// RecentActivity returns the newest audit entries
// @Summary Recent activity
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries" default(10)
// @Success 200 {object} dto.APIResponse{data=[]dto.ActivityLogResponse}
// @Router /dashboard/activity-logs [get]
func (c *DashboardController) RecentActivity(ctx *gin.Context) {
	logs, err := c.dashboardService.RecentActivity(ctx.Request.Context(), limitQuery(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, logs)
}
