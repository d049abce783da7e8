package controllers

import (
	"net/http"

	"repairdesk-backend/services"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	Engine *services.Engine
}

func (dc *DashboardController) GetDashboardOverview(c *gin.Context) {
	overview, err := dc.Engine.Reports.Overview(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, overview)
}
