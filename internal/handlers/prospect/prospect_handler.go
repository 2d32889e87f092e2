// internal/handlers/prospect/prospect_handler.go
package prospect

import (
	"net/http"

	"gitwallet-service/internal/domain/prospect"
	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/response"
	service "gitwallet-service/internal/service/prospect"

	"github.com/gin-gonic/gin"
)

type ProspectHandler struct {
	prospectService *service.ProspectService
}

func NewProspectHandler(prospectService *service.ProspectService) *ProspectHandler {
	return &ProspectHandler{
		prospectService: prospectService,
	}
}

func (h *ProspectHandler) ListProspects(c *gin.Context) {
	var filters prospect.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.prospectService.List(c.Request.Context(), middleware.GetActor(c), &filters)
	if err != nil {
		response.FromError(c, "failed to list prospects", err)
		return
	}

	response.Success(c, http.StatusOK, "prospects retrieved", result)
}

func (h *ProspectHandler) GetProspect(c *gin.Context) {
	p, err := h.prospectService.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "prospect not found", err)
		return
	}

	response.Success(c, http.StatusOK, "prospect retrieved", p)
}

func (h *ProspectHandler) QualifyProspect(c *gin.Context) {
	var req prospect.QualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.prospectService.Qualify(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to qualify prospect", err)
		return
	}

	response.Success(c, http.StatusOK, "prospect updated", p)
}
