// controllers/reminder.go
package controllers

import (
	"net/http"

	"repairdesk-backend/models"
	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// ReminderController handles notification dispatch and expiry reminders
type ReminderController struct {
	Engine *services.Engine
}

// NotifyInput carries an already substituted message
type NotifyInput struct {
	Message string `json:"message" binding:"required"`
}

type SendRemindersInput struct {
	Days *int `json:"days" binding:"omitempty,gte=0,lte=365"`
}

// NotifyRecord sends a manual reminder about one record
func (rc *ReminderController) NotifyRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var input NotifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	entry, err := rc.Engine.Notifications.Dispatch(c.Request.Context(), id, input.Message)
	if err != nil {
		respondServiceError(c, err, "Failed to send notification")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetNotifications lists the notification log, newest first
func (rc *ReminderController) GetNotifications(c *gin.Context) {
	logs, err := rc.Engine.Notifications.List(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve notifications")
		return
	}
	if logs == nil {
		logs = []models.NotificationLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (rc *ReminderController) GetNotification(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	entry, err := rc.Engine.Notifications.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve notification")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RetryNotification re-sends one notification now
func (rc *ReminderController) RetryNotification(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	entry, err := rc.Engine.Notifications.RetryOne(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to retry notification")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RetryNotifications re-sends pending and failed notifications
func (rc *ReminderController) RetryNotifications(c *gin.Context) {
	report, err := rc.Engine.Notifications.Retry(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to retry notifications")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetDueReminders lists expiries at most ?days= away, expired ones included
func (rc *ReminderController) GetDueReminders(c *gin.Context) {
	days := queryInt(c, "days", rc.Engine.Calendar.ExpiringSoonDays())
	targets, err := rc.Engine.Reminders.DueWithin(c.Request.Context(), days)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve reminders")
		return
	}
	if targets == nil {
		targets = []services.ReminderTarget{}
	}
	c.JSON(http.StatusOK, targets)
}

// SendReminders sends templated reminders for every due expiry. The body is
// optional; without it the expiring-soon window is used.
func (rc *ReminderController) SendReminders(c *gin.Context) {
	var input SendRemindersInput
	if err := bindOptionalJSON(c, &input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	days := rc.Engine.Calendar.ExpiringSoonDays()
	if input.Days != nil {
		days = *input.Days
	}

	ctx := c.Request.Context()
	targets, err := rc.Engine.Reminders.DueWithin(ctx, days)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve reminders")
		return
	}
	report, err := rc.Engine.Reminders.Send(ctx, targets)
	if err != nil {
		respondServiceError(c, err, "Failed to send reminders")
		return
	}
	c.JSON(http.StatusOK, report)
}
