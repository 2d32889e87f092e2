// internal/handlers/dashboard/dashboard_handler.go
package dashboard

import (
	"net/http"

	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/response"
	service "gitwallet-service/internal/service/dashboard"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) GetCustomers(c *gin.Context) {
	result, err := h.dashboardService.Customers(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.FromError(c, "failed to load customers", err)
		return
	}

	response.Success(c, http.StatusOK, "customers retrieved", result)
}

func (h *DashboardHandler) GetRevenue(c *gin.Context) {
	result, err := h.dashboardService.Revenue(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.FromError(c, "failed to load revenue", err)
		return
	}

	response.Success(c, http.StatusOK, "revenue retrieved", result)
}
