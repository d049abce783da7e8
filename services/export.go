package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"repairdesk-backend/repository"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", invalid("format", "unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// The csv tags below are the export column contract. Append new columns at
// the end; never rename or reorder.

type recordRow struct {
	ID                  string `csv:"id"`
	CustomerName        string `csv:"customer_name"`
	PhoneNumber         string `csv:"phone_number"`
	Brand               string `csv:"brand"`
	Model               string `csv:"model"`
	SerialNumber        string `csv:"serial_number"`
	WarrantyCompany     string `csv:"warranty_company"`
	WarrantyMonths      int    `csv:"warranty_months"`
	WarrantyExpiration  string `csv:"warranty_expiration"`
	WarrantyStatus      string `csv:"warranty_status"`
	WarrantyDaysLeft    string `csv:"warranty_days_left"`
	ReceptionDate       string `csv:"reception_date"`
	HasWindows          bool   `csv:"has_windows"`
	AntivirusType       string `csv:"antivirus_type"`
	AntivirusExpiration string `csv:"antivirus_expiration"`
	AntivirusStatus     string `csv:"antivirus_status"`
	AntivirusDaysLeft   string `csv:"antivirus_days_left"`
	TotalPrice          string `csv:"total_price"`
	Description         string `csv:"description"`
}

type customerRow struct {
	Key         string `csv:"key"`
	Name        string `csv:"name"`
	Phone       string `csv:"phone"`
	TotalSpent  string `csv:"total_spent"`
	ItemsBought int    `csv:"items_bought"`
	LastVisit   string `csv:"last_visit"`
	Tags        string `csv:"tags"`
	Repairs     int    `csv:"repairs_count"`
	OpenRepairs int    `csv:"open_repairs"`
}

type repairRow struct {
	ID                 string `csv:"id"`
	TrackingCode       string `csv:"tracking_code"`
	CustomerName       string `csv:"customer_name"`
	PhoneNumber        string `csv:"phone_number"`
	DeviceModel        string `csv:"device_model"`
	Issue              string `csv:"issue"`
	ServiceType        string `csv:"service_type"`
	Status             string `csv:"status"`
	Cost               string `csv:"cost"`
	ServiceDate        string `csv:"service_date"`
	CompletedDate      string `csv:"completed_date"`
	WarrantyExpiration string `csv:"warranty_expiration"`
	WarrantyStatus     string `csv:"warranty_status"`
	WarrantyDaysLeft   string `csv:"warranty_days_left"`
	Description        string `csv:"description"`
}

type notificationRow struct {
	ID             string `csv:"id"`
	RecordID       string `csv:"record_id"`
	RecipientName  string `csv:"recipient_name"`
	RecipientPhone string `csv:"recipient_phone"`
	Category       string `csv:"category"`
	MessageContent string `csv:"message_content"`
	SentDate       string `csv:"sent_date"`
	Status         string `csv:"status"`
	Channel        string `csv:"channel"`
	RetryCount     int    `csv:"retry_count"`
	ErrorMessage   string `csv:"error_message"`
}

type Exporter struct {
	store      repository.Store
	records    *RecordService
	repairs    *RepairService
	aggregator *Aggregator
	log        *zap.Logger
}

func daysLeft(e Expiry) string {
	if e.DaysLeft == nil {
		return ""
	}
	return strconv.Itoa(*e.DaysLeft)
}

// recordRows builds one export row per record, most recent first. A record
// with malformed dates exports with status unknown.
func (e *Exporter) recordRows(ctx context.Context) ([]recordRow, error) {
	views, err := e.records.List(ctx, "")
	if err != nil {
		return nil, err
	}
	rows := make([]recordRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, recordRow{
			ID:                  v.ID.String(),
			CustomerName:        v.CustomerName,
			PhoneNumber:         v.PhoneNumber,
			Brand:               v.Brand,
			Model:               v.Model,
			SerialNumber:        v.SerialNumber,
			WarrantyCompany:     v.WarrantyCompany,
			WarrantyMonths:      v.WarrantyMonths,
			WarrantyExpiration:  v.WarrantyExpiration,
			WarrantyStatus:      string(v.Warranty.Status),
			WarrantyDaysLeft:    daysLeft(v.Warranty),
			ReceptionDate:       v.ReceptionDate,
			HasWindows:          v.HasWindows,
			AntivirusType:       string(v.AntivirusType),
			AntivirusExpiration: v.AntivirusExpiration,
			AntivirusStatus:     string(v.Antivirus.Status),
			AntivirusDaysLeft:   daysLeft(v.Antivirus),
			TotalPrice:          v.TotalPrice,
			Description:         v.Description,
		})
	}
	return rows, nil
}

func (e *Exporter) Records(ctx context.Context, w io.Writer, format Format) error {
	rows, err := e.recordRows(ctx)
	if err != nil {
		return err
	}
	return writeTable(w, format, "Records", rows)
}

func (e *Exporter) Customers(ctx context.Context, w io.Writer, format Format) error {
	agg, err := e.aggregator.Customers(ctx, "")
	if err != nil {
		return err
	}
	rows := make([]customerRow, 0, len(agg.Customers))
	for _, c := range agg.Customers {
		tags := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = string(t)
		}
		rows = append(rows, customerRow{
			Key:         c.Key,
			Name:        c.Name,
			Phone:       c.Phone,
			TotalSpent:  c.TotalSpent.String(),
			ItemsBought: c.ItemsBought,
			LastVisit:   c.LastVisit,
			Tags:        strings.Join(tags, ";"),
			Repairs:     c.RepairsCount,
			OpenRepairs: c.OpenRepairs,
		})
	}
	return writeTable(w, format, "Customers", rows)
}

// Repairs writes every repair ticket, most recent first.
func (e *Exporter) Repairs(ctx context.Context, w io.Writer, format Format) error {
	views, err := e.repairs.List(ctx, "", "")
	if err != nil {
		return err
	}
	rows := make([]repairRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, repairRow{
			ID:                 v.ID.String(),
			TrackingCode:       v.TrackingCode,
			CustomerName:       v.CustomerName,
			PhoneNumber:        v.PhoneNumber,
			DeviceModel:        v.DeviceModel,
			Issue:              v.Issue,
			ServiceType:        string(v.ServiceType),
			Status:             string(v.Status),
			Cost:               v.Cost,
			ServiceDate:        v.ServiceDate,
			CompletedDate:      v.CompletedDate,
			WarrantyExpiration: v.WarrantyExpiration,
			WarrantyStatus:     string(v.Warranty.Status),
			WarrantyDaysLeft:   daysLeft(v.Warranty),
			Description:        v.Description,
		})
	}
	return writeTable(w, format, "Repairs", rows)
}

func (e *Exporter) Notifications(ctx context.Context, w io.Writer, format Format) error {
	logs, err := e.store.Notifications().List(ctx, 0)
	if err != nil {
		return err
	}
	rows := make([]notificationRow, 0, len(logs))
	for _, n := range logs {
		rows = append(rows, notificationRow{
			ID:             n.ID.String(),
			RecordID:       n.RecordID.String(),
			RecipientName:  n.RecipientName,
			RecipientPhone: n.RecipientPhone,
			Category:       n.Category,
			MessageContent: n.MessageContent,
			SentDate:       n.SentDate,
			Status:         string(n.Status),
			Channel:        n.Channel,
			RetryCount:     n.RetryCount,
			ErrorMessage:   n.ErrorMessage,
		})
	}
	return writeTable(w, format, "Notifications", rows)
}

// writeTable renders rows through gocsv so csv and xlsx share one column
// contract.
func writeTable[T any](w io.Writer, format Format, sheet string, rows []T) error {
	if format == FormatCSV {
		return gocsv.Marshal(&rows, w)
	}

	text, err := gocsv.MarshalString(&rows)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", sheet, err)
	}
	table, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return fmt.Errorf("reread %s: %w", sheet, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#3b82f6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		if i == 0 && len(row) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(row), 1)
			f.SetCellStyle(sheet, cell, last, header)
		}
	}
	return f.Write(w)
}
