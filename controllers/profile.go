package controllers

import (
	"net/http"

	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// SettingsController exposes the engine policy and the editable parts of it
type SettingsController struct {
	Engine *services.Engine
}

type NotificationSettingsInput struct {
	NotifyOnRenewal *bool `json:"notifyOnRenewal" binding:"required"`
}

func (sc *SettingsController) GetSettings(c *gin.Context) {
	e := sc.Engine
	c.JSON(http.StatusOK, gin.H{
		"expiringSoonDays": e.Calendar.ExpiringSoonDays(),
		"allowedDurations": e.Renewals.AllowedDurations(),
		"notifyOnRenewal":  e.Renewals.NotifyOnRenewal(),
		"notifyMaxRetries": e.Notifications.MaxRetries(),
		"reminderLeadDays": e.Reminders.LeadDays(),
		"retention":        e.Retention.Policy(),
		"templates":        e.Notifications.Templates(),
		"today":            e.Calendar.Today().String(),
	})
}

// UpdateTemplates replaces the reminder and renewal message templates
func (sc *SettingsController) UpdateTemplates(c *gin.Context) {
	var input services.Templates
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if err := sc.Engine.Notifications.SetTemplates(input); err != nil {
		respondServiceError(c, err, "Failed to update templates")
		return
	}
	c.JSON(http.StatusOK, sc.Engine.Notifications.Templates())
}

// UpdateNotifications toggles the renewal confirmation message
func (sc *SettingsController) UpdateNotifications(c *gin.Context) {
	var input NotificationSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	sc.Engine.Renewals.SetNotifyOnRenewal(*input.NotifyOnRenewal)
	c.JSON(http.StatusOK, gin.H{"notifyOnRenewal": sc.Engine.Renewals.NotifyOnRenewal()})
}
