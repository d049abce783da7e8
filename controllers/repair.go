package controllers

import (
	"net/http"

	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// RepairController handles repair tickets
type RepairController struct {
	Engine *services.Engine
}

// CreateRepair receives a device for repair
func (rc *RepairController) CreateRepair(c *gin.Context) {
	var input services.RepairInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ticket, err := rc.Engine.Repairs.Create(c.Request.Context(), input, utils.Operator(c))
	if err != nil {
		respondServiceError(c, err, "Failed to create repair")
		return
	}
	c.JSON(http.StatusCreated, rc.Engine.Repairs.View(ticket))
}

// GetRepairs lists tickets most recent first, filtered by ?q= and ?status=
func (rc *RepairController) GetRepairs(c *gin.Context) {
	views, err := rc.Engine.Repairs.List(c.Request.Context(), c.Query("q"), c.Query("status"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve repairs")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (rc *RepairController) GetRepair(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ticket, err := rc.Engine.Repairs.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve repair")
		return
	}
	c.JSON(http.StatusOK, rc.Engine.Repairs.View(ticket))
}

// UpdateRepair changes only the fields present in the body
func (rc *RepairController) UpdateRepair(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var input services.RepairPatch
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ticket, err := rc.Engine.Repairs.Update(c.Request.Context(), id, input, utils.Operator(c))
	if err != nil {
		respondServiceError(c, err, "Failed to update repair")
		return
	}
	c.JSON(http.StatusOK, rc.Engine.Repairs.View(ticket))
}

func (rc *RepairController) DeleteRepair(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := rc.Engine.Repairs.Delete(c.Request.Context(), id, utils.Operator(c)); err != nil {
		respondServiceError(c, err, "Failed to delete repair")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Repair deleted successfully"})
}

// TrackRepair finds a ticket by its tracking code
func (rc *RepairController) TrackRepair(c *gin.Context) {
	ticket, err := rc.Engine.Repairs.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondServiceError(c, err, "Failed to track repair")
		return
	}
	c.JSON(http.StatusOK, rc.Engine.Repairs.View(ticket))
}
