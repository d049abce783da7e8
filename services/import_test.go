package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"repairdesk-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestImportRoundTripsExport(t *testing.T) {
	src, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := src.Records.Create(ctx, RecordInput{
		CustomerName:    "Ali",
		PhoneNumber:     "09121234567",
		Brand:           "Asus",
		Model:           "X515",
		SerialNumber:    "SN-1",
		WarrantyCompany: "Sazgar",
		WarrantyMonths:  18,
		ReceptionDate:   "1402/05/10",
		HasWindows:      true,
		AntivirusType:   "double",
		TotalPrice:      "25,000,000",
		Description:     "first sale",
	}, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Exporter.Records(ctx, &buf, FormatCSV))

	dst, _ := newTestEngine(t)
	report, err := dst.Importer.Import(ctx, &buf, FormatCSV, "importer")
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Rows: 1, Created: 1, Errors: []RowError{}}, report)

	recs, err := dst.Store.Records().List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	got := recs[0]
	assert.Equal(t, "Ali", got.CustomerName)
	assert.Equal(t, "09121234567", got.PhoneNumber)
	assert.Equal(t, "Asus", got.Brand)
	assert.Equal(t, "SN-1", got.SerialNumber)
	assert.Equal(t, 18, got.WarrantyMonths)
	assert.Equal(t, "1403/11/10", got.WarrantyExpiration)
	assert.Equal(t, "1402/05/10", got.ReceptionDate)
	assert.True(t, got.HasWindows)
	assert.Equal(t, models.AntivirusDouble, got.AntivirusType)
	assert.Equal(t, "1403/05/10", got.AntivirusExpiration)
	assert.Equal(t, "25000000", got.TotalPrice)
	assert.Equal(t, "first sale", got.Description)
}

func TestImportPersianSheet(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sheet := strings.Join([]string{
		"نام مشتری,تلفن همراه,مدل,تاریخ پذیرش,آنتی ویروس,ویندوز,قیمت",
		"علی رضایی,۰۹۱۲۱۲۳۴۵۶۷,X515,۱۴۰۲/۰۵/۱۰,تک کاربره,بله,\"۱٬۰۰۰٬۰۰۰\"",
		",,,,,,",
		"سارا,09351112233,ThinkPad,1402/13/01,,,",
		",,Mouse,,,,",
	}, "\n")

	report, err := e.Importer.Import(ctx, strings.NewReader(sheet), FormatCSV, "")
	require.NoError(t, err)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Empty)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 4, report.Errors[0].Row)
	assert.Contains(t, report.Errors[0].Reason, "receptionDate")
	assert.Equal(t, 5, report.Errors[1].Row)

	recs, err := e.Store.Records().List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "علی رضایی", recs[0].CustomerName)
	assert.Equal(t, models.AntivirusSingle, recs[0].AntivirusType)
	assert.Equal(t, "1403/05/10", recs[0].AntivirusExpiration)
	assert.True(t, recs[0].HasWindows)
	assert.Equal(t, "1000000", recs[0].TotalPrice)

	c, err := e.Customers.Lookup(ctx, "09121234567")
	require.NoError(t, err)
	assert.Equal(t, "علی رضایی", c.Name)
}

func TestImportXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Customer Name", "Phone", "Reception Date"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Ali", "09121234567", "1403/01/01"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	e, _ := newTestEngine(t)
	report, err := e.Importer.Import(context.Background(), &buf, FormatXLSX, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
}

func TestImportRejectsUnusableFiles(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	var verr *ValidationError

	_, err := e.Importer.Import(ctx, strings.NewReader("brand,model\nAsus,X515\n"), FormatCSV, "")
	assert.ErrorAs(t, err, &verr)

	_, err = e.Importer.Import(ctx, strings.NewReader(""), FormatCSV, "")
	assert.ErrorAs(t, err, &verr)

	_, err = e.Importer.Import(ctx, strings.NewReader("not a workbook"), FormatXLSX, "")
	assert.ErrorAs(t, err, &verr)
}
