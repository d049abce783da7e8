package controllers

import (
	"net/http"

	"repairdesk-backend/models"
	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type RenewalController struct {
	Engine *services.Engine
}

type RenewInput struct {
	Target         string `json:"target" binding:"required,oneof=warranty antivirus"`
	DurationMonths int    `json:"durationMonths" binding:"required,gt=0"`
}

// Renew extends the warranty or antivirus expiry of a record
func (rc *RenewalController) Renew(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var input RenewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	result, err := rc.Engine.Renewals.Renew(c.Request.Context(), services.RenewalRequest{
		RecordID:       id,
		Target:         models.RenewalTarget(input.Target),
		DurationMonths: input.DurationMonths,
		User:           utils.Operator(c),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to renew")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRenewals returns the renewal history of a record
func (rc *RenewalController) GetRenewals(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	events, err := rc.Engine.Renewals.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve renewals")
		return
	}
	if events == nil {
		events = []models.RenewalEvent{}
	}
	c.JSON(http.StatusOK, events)
}
