package controllers

import (
	"net/http"

	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// RecordController handles service record CRUD
type RecordController struct {
	Engine *services.Engine
}

// CreateRecord stores a new device sale or service intake
func (rc *RecordController) CreateRecord(c *gin.Context) {
	var input services.RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	rec, err := rc.Engine.Records.Create(c.Request.Context(), input, utils.Operator(c))
	if err != nil {
		respondServiceError(c, err, "Failed to create record")
		return
	}
	c.JSON(http.StatusCreated, rc.Engine.Records.View(rec))
}

// GetRecords lists records most recent first, optionally filtered by ?q=
func (rc *RecordController) GetRecords(c *gin.Context) {
	views, err := rc.Engine.Records.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve records")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (rc *RecordController) GetRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	rec, err := rc.Engine.Records.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve record")
		return
	}
	c.JSON(http.StatusOK, rc.Engine.Records.View(rec))
}

// UpdateRecord changes only the fields present in the body
func (rc *RecordController) UpdateRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var input services.RecordPatch
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	rec, err := rc.Engine.Records.Update(c.Request.Context(), id, input, utils.Operator(c))
	if err != nil {
		respondServiceError(c, err, "Failed to update record")
		return
	}
	c.JSON(http.StatusOK, rc.Engine.Records.View(rec))
}

func (rc *RecordController) DeleteRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := rc.Engine.Records.Delete(c.Request.Context(), id, utils.Operator(c)); err != nil {
		respondServiceError(c, err, "Failed to delete record")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}
