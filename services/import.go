package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"repairdesk-backend/utils"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type field int

const (
	fieldName field = iota
	fieldPhone
	fieldBrand
	fieldModel
	fieldSerial
	fieldWarrantyCompany
	fieldWarrantyMonths
	fieldWarrantyExpiration
	fieldReceptionDate
	fieldHasWindows
	fieldAntivirusType
	fieldAntivirusExpiration
	fieldTotalPrice
	fieldDescription
)

// headerAliases maps normalized header text (see headerKey) to a field.
// Sheets come from the shop's own exports and from hand-made Persian sheets.
var headerAliases = map[string]field{
	"customername": fieldName, "name": fieldName, "customer": fieldName,
	"نام": fieldName, "ناممشتری": fieldName, "نامونامخانوادگی": fieldName, "مشتری": fieldName,

	"phonenumber": fieldPhone, "phone": fieldPhone, "mobile": fieldPhone, "tel": fieldPhone,
	"تلفن": fieldPhone, "شمارهتماس": fieldPhone, "موبایل": fieldPhone, "شمارهموبایل": fieldPhone, "تلفنهمراه": fieldPhone,

	"brand": fieldBrand, "برند": fieldBrand,
	"model": fieldModel, "مدل": fieldModel,
	"serialnumber": fieldSerial, "serial": fieldSerial, "سریال": fieldSerial, "شمارهسریال": fieldSerial,

	"warrantycompany": fieldWarrantyCompany, "شرکتگارانتی": fieldWarrantyCompany, "گارانتی": fieldWarrantyCompany,
	"warrantymonths": fieldWarrantyMonths, "مدتگارانتی": fieldWarrantyMonths,
	"warrantyexpiration": fieldWarrantyExpiration, "انقضایگارانتی": fieldWarrantyExpiration, "پایانگارانتی": fieldWarrantyExpiration,

	"receptiondate": fieldReceptionDate, "date": fieldReceptionDate,
	"تاریخ": fieldReceptionDate, "تاریخپذیرش": fieldReceptionDate, "تاریخخرید": fieldReceptionDate,

	"haswindows": fieldHasWindows, "windows": fieldHasWindows, "ویندوز": fieldHasWindows,

	"antivirustype": fieldAntivirusType, "antivirus": fieldAntivirusType,
	"آنتیویروس": fieldAntivirusType, "نوعآنتیویروس": fieldAntivirusType,
	"antivirusexpiration": fieldAntivirusExpiration, "انقضایآنتیویروس": fieldAntivirusExpiration,

	"totalprice": fieldTotalPrice, "price": fieldTotalPrice, "amount": fieldTotalPrice,
	"قیمت": fieldTotalPrice, "مبلغ": fieldTotalPrice, "قیمتکل": fieldTotalPrice, "مبلغکل": fieldTotalPrice,

	"description": fieldDescription, "notes": fieldDescription, "توضیحات": fieldDescription,
}

// Persian values accepted for the antivirus type column.
var antivirusAliases = map[string]string{
	"ندارد": "none", "بدون": "none",
	"تک": "single", "تککاربره": "single", "یک": "single",
	"دو": "double", "دوکاربره": "double",
}

// headerKey lowercases and drops spaces, underscores, dashes and the
// zero-width non-joiner so "Customer Name", "customer_name" and "نام مشتری"
// compare equal to their aliases.
func headerKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\u200c', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Rows    int        `json:"rows"`
	Created int        `json:"created"`
	Empty   int        `json:"empty"`
	Errors  []RowError `json:"errors"`
}

type Importer struct {
	records *RecordService
	log     *zap.Logger
}

// Import reads a sheet and creates one record per row. Rows that fail
// validation are reported and skipped; the rest are still created.
func (im *Importer) Import(ctx context.Context, r io.Reader, format Format, user string) (ImportReport, error) {
	var rows [][]string
	var err error
	switch format {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		rows, err = cr.ReadAll()
	default:
		rows, err = readSheet(r)
	}
	if err != nil {
		return ImportReport{}, invalid("file", "cannot read %s: %v", format, err)
	}
	return im.importRows(ctx, rows, user)
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func (im *Importer) importRows(ctx context.Context, rows [][]string, user string) (ImportReport, error) {
	report := ImportReport{Errors: []RowError{}}
	if len(rows) == 0 {
		return report, invalid("file", "sheet is empty")
	}

	columns := map[field]int{}
	for i, h := range rows[0] {
		if f, ok := headerAliases[headerKey(h)]; ok {
			if _, dup := columns[f]; !dup {
				columns[f] = i
			}
		}
	}
	_, hasName := columns[fieldName]
	_, hasPhone := columns[fieldPhone]
	if !hasName && !hasPhone {
		return report, invalid("file", "no customer name or phone column in header %v", rows[0])
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		report.Rows++
		if blank(row) {
			report.Empty++
			continue
		}
		in, err := rowInput(row, columns)
		if err == nil {
			_, err = im.records.Create(ctx, in, user)
		}
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return report, fmt.Errorf("import row %d: %w", rowNum, err)
			}
			report.Errors = append(report.Errors, RowError{Row: rowNum, Reason: verr.Error()})
			continue
		}
		report.Created++
	}

	im.log.Info("import finished",
		zap.Int("rows", report.Rows),
		zap.Int("created", report.Created),
		zap.Int("rejected", len(report.Errors)))
	return report, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowInput(row []string, columns map[field]int) (RecordInput, error) {
	get := func(f field) string {
		i, ok := columns[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	in := RecordInput{
		CustomerName:        get(fieldName),
		PhoneNumber:         get(fieldPhone),
		Brand:               get(fieldBrand),
		Model:               get(fieldModel),
		SerialNumber:        get(fieldSerial),
		WarrantyCompany:     get(fieldWarrantyCompany),
		WarrantyExpiration:  get(fieldWarrantyExpiration),
		ReceptionDate:       get(fieldReceptionDate),
		AntivirusExpiration: get(fieldAntivirusExpiration),
		TotalPrice:          get(fieldTotalPrice),
		Description:         get(fieldDescription),
	}

	if months := utils.FoldDigits(get(fieldWarrantyMonths)); months != "" {
		n, err := strconv.Atoi(months)
		if err != nil {
			return in, invalid("warrantyMonths", "%q is not a number", months)
		}
		in.WarrantyMonths = n
	}

	in.HasWindows = parseYesNo(get(fieldHasWindows))

	av := get(fieldAntivirusType)
	if alias, ok := antivirusAliases[headerKey(av)]; ok {
		av = alias
	}
	in.AntivirusType = av
	return in, nil
}

func parseYesNo(s string) bool {
	switch headerKey(s) {
	case "بله", "دارد", "✓", "yes", "y":
		return true
	}
	return cast.ToBool(s)
}
