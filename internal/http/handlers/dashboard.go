package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/services"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) GetMine(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	dash, err := h.dashboardService.GetUserDashboard(requestDBC(c), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, dash)
}
