// controllers/report.go
package controllers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"repairdesk-backend/models"
	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// ReportController handles exports, imports and maintenance tasks
type ReportController struct {
	Engine *services.Engine
}

func sendAttachment(c *gin.Context, fileName, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	c.Data(http.StatusOK, contentType, data)
}

func (rc *ReportController) export(c *gin.Context, name string,
	write func(e *services.Exporter, ctx context.Context, w io.Writer, format services.Format) error) {
	format, err := services.ParseFormat(c.Query("format"))
	if err != nil {
		respondServiceError(c, err, "Invalid export format")
		return
	}
	var buf bytes.Buffer
	if err := write(rc.Engine.Exporter, c.Request.Context(), &buf, format); err != nil {
		respondServiceError(c, err, "Failed to export "+name)
		return
	}
	fileName := fmt.Sprintf("%s_%s.%s", name, time.Now().Format("20060102"), format)
	sendAttachment(c, fileName, format.ContentType(), buf.Bytes())
}

// ExportRecords writes every record with its expiry status
func (rc *ReportController) ExportRecords(c *gin.Context) {
	rc.export(c, "records", (*services.Exporter).Records)
}

func (rc *ReportController) ExportCustomers(c *gin.Context) {
	rc.export(c, "customers", (*services.Exporter).Customers)
}

func (rc *ReportController) ExportRepairs(c *gin.Context) {
	rc.export(c, "repairs", (*services.Exporter).Repairs)
}

func (rc *ReportController) ExportNotifications(c *gin.Context) {
	rc.export(c, "notifications", (*services.Exporter).Notifications)
}

// ImportRecords creates records from an uploaded xlsx or csv file
func (rc *ReportController) ImportRecords(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: file is required")
		return
	}
	format := services.FormatXLSX
	if strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		format = services.FormatCSV
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Failed to open uploaded file")
		return
	}
	defer file.Close()

	report, err := rc.Engine.Importer.Import(c.Request.Context(), file, format, utils.Operator(c))
	if err != nil {
		respondServiceError(c, err, "Failed to import records")
		return
	}
	c.JSON(http.StatusOK, report)
}

// Backup downloads a JSON snapshot of the whole store
func (rc *ReportController) Backup(c *gin.Context) {
	var buf bytes.Buffer
	if err := rc.Engine.Backup.Write(c.Request.Context(), &buf); err != nil {
		respondServiceError(c, err, "Failed to create backup")
		return
	}
	fileName := fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	sendAttachment(c, fileName, "application/json", buf.Bytes())
}

// Heal runs the record healing pass on demand
func (rc *ReportController) Heal(c *gin.Context) {
	report, err := rc.Engine.Healer.Heal(c.Request.Context(), utils.Operator(c))
	if err != nil {
		respondServiceError(c, err, "Failed to heal records")
		return
	}
	c.JSON(http.StatusOK, report)
}

// ApplyRetention prunes the audit and notification logs on demand
func (rc *ReportController) ApplyRetention(c *gin.Context) {
	report, err := rc.Engine.Retention.Apply(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to apply retention")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rc *ReportController) GetAuditLog(c *gin.Context) {
	logs, err := rc.Engine.Store.Audit().List(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve audit log")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, logs)
}
