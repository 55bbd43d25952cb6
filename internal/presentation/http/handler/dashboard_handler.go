package handler

import (
	"github.com/biishnuthapa/easyreceipt/internal/application/service"
	"github.com/biishnuthapa/easyreceipt/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats handles fetching dashboard statistics
// @Summary Dashboard Stats
// @Description Get receipt statistics for the current user
// @Tags dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	stats, err := h.dashboardService.GetStats(c.Request.Context(), *userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Dashboard stats retrieved successfully", stats)
}
