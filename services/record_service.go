package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"
	"repairdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordInput carries the editable fields of a ServiceRecord.
type RecordInput struct {
	CustomerName        string `json:"customerName" binding:"max=120"`
	PhoneNumber         string `json:"phoneNumber" binding:"max=32"`
	Brand               string `json:"brand"`
	Model               string `json:"model"`
	SerialNumber        string `json:"serialNumber"`
	WarrantyCompany     string `json:"warrantyCompany"`
	WarrantyMonths      int    `json:"warrantyMonths" binding:"gte=0,lte=120"`
	WarrantyExpiration  string `json:"warrantyExpiration" binding:"omitempty,jalali"`
	ReceptionDate       string `json:"receptionDate" binding:"omitempty,jalali"`
	HasWindows          bool   `json:"hasWindows"`
	AntivirusType       string `json:"antivirusType" binding:"omitempty,oneof=none single double"`
	AntivirusExpiration string `json:"antivirusExpiration" binding:"omitempty,jalali"`
	TotalPrice          string `json:"totalPrice"`
	Description         string `json:"description"`
}

// RecordPatch changes only the fields that are present. A new warranty
// length without an explicit expiry recomputes the expiry from the reception
// date; a new antivirus type without an explicit expiry restarts the term.
type RecordPatch struct {
	CustomerName        *string `json:"customerName" binding:"omitempty,max=120"`
	PhoneNumber         *string `json:"phoneNumber" binding:"omitempty,max=32"`
	Brand               *string `json:"brand"`
	Model               *string `json:"model"`
	SerialNumber        *string `json:"serialNumber"`
	WarrantyCompany     *string `json:"warrantyCompany"`
	WarrantyMonths      *int    `json:"warrantyMonths" binding:"omitempty,gte=0,lte=120"`
	WarrantyExpiration  *string `json:"warrantyExpiration"`
	ReceptionDate       *string `json:"receptionDate" binding:"omitempty,jalali"`
	HasWindows          *bool   `json:"hasWindows"`
	AntivirusType       *string `json:"antivirusType" binding:"omitempty,oneof=none single double"`
	AntivirusExpiration *string `json:"antivirusExpiration"`
	TotalPrice          *string `json:"totalPrice"`
	Description         *string `json:"description"`
}

func (p RecordPatch) merge(r *models.ServiceRecord) RecordInput {
	in := RecordInput{
		CustomerName:        pick(p.CustomerName, r.CustomerName),
		PhoneNumber:         pick(p.PhoneNumber, r.PhoneNumber),
		Brand:               pick(p.Brand, r.Brand),
		Model:               pick(p.Model, r.Model),
		SerialNumber:        pick(p.SerialNumber, r.SerialNumber),
		WarrantyCompany:     pick(p.WarrantyCompany, r.WarrantyCompany),
		WarrantyMonths:      r.WarrantyMonths,
		WarrantyExpiration:  pick(p.WarrantyExpiration, r.WarrantyExpiration),
		ReceptionDate:       pick(p.ReceptionDate, ""),
		HasWindows:          r.HasWindows,
		AntivirusType:       pick(p.AntivirusType, string(r.AntivirusType)),
		AntivirusExpiration: pick(p.AntivirusExpiration, r.AntivirusExpiration),
		TotalPrice:          pick(p.TotalPrice, r.TotalPrice),
	}
	if p.WarrantyMonths != nil {
		in.WarrantyMonths = *p.WarrantyMonths
		if p.WarrantyExpiration == nil {
			in.WarrantyExpiration = ""
		}
	}
	if p.HasWindows != nil {
		in.HasWindows = *p.HasWindows
	}
	if p.AntivirusType != nil && p.AntivirusExpiration == nil && *p.AntivirusType != string(r.AntivirusType) {
		in.AntivirusExpiration = ""
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	return in
}

// RecordView is a record with its expiry classification attached.
type RecordView struct {
	*models.ServiceRecord
	Warranty  Expiry `json:"warranty"`
	Antivirus Expiry `json:"antivirus"`
}

type RecordService struct {
	store              repository.Store
	cal                *Calendar
	mu                 *sync.Mutex
	antivirusTermYears int
	log                *zap.Logger
}

// View classifies both expiries of r. An antivirus of type none is always
// StatusUnknown regardless of any stale date.
func (s *RecordService) View(r *models.ServiceRecord) RecordView {
	v := RecordView{ServiceRecord: r, Warranty: s.cal.Expiry(r.WarrantyExpiration)}
	if r.AntivirusType == models.AntivirusNone {
		v.Antivirus = Expiry{Date: r.AntivirusExpiration, Status: StatusUnknown}
	} else {
		v.Antivirus = s.cal.Expiry(r.AntivirusExpiration)
	}
	return v
}

func (s *RecordService) Create(ctx context.Context, in RecordInput, user string) (*models.ServiceRecord, error) {
	rec := &models.ServiceRecord{}
	if err := s.apply(rec, in, true); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cal.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if err := tx.Records().Create(ctx, rec); err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		return writeAudit(ctx, tx, s.cal, models.AuditCreate, "Record created", describe(rec), user)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("record created", zap.String("id", rec.ID.String()), zap.String("user", user))
	return rec, nil
}

// Update applies p to the record; absent fields keep their stored value, so
// a renewed expiry survives an edit that does not mention it. A non-empty
// description is appended to the narrative instead of replacing it.
func (s *RecordService) Update(ctx context.Context, id uuid.UUID, p RecordPatch, user string) (*models.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *models.ServiceRecord
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		rec, err = tx.Records().GetByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "record", id.String())
		}
		if err := s.apply(rec, p.merge(rec), false); err != nil {
			return err
		}
		rec.UpdatedAt = s.cal.Now()
		if err := tx.Records().Update(ctx, rec); err != nil {
			return mapNotFound(err, "record", id.String())
		}
		return writeAudit(ctx, tx, s.cal, models.AuditUpdate, "Record updated", describe(rec), user)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecordService) Get(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error) {
	rec, err := s.store.Records().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "record", id.String())
	}
	return rec, nil
}

// List returns records most recent first. query matches name, model, serial
// or phone (in any of its written forms).
func (s *RecordService) List(ctx context.Context, query string) ([]RecordView, error) {
	recs, err := s.store.Records().List(ctx)
	if err != nil {
		return nil, err
	}
	ordered := MostRecentFirst(recs)
	views := make([]RecordView, 0, len(ordered))
	for i := range ordered {
		if !matchRecord(&ordered[i], query) {
			continue
		}
		views = append(views, s.View(&ordered[i]))
	}
	return views, nil
}

func (s *RecordService) Delete(ctx context.Context, id uuid.UUID, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Atomic(ctx, func(tx repository.Store) error {
		rec, err := tx.Records().GetByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "record", id.String())
		}
		if err := tx.Records().Delete(ctx, id); err != nil {
			return mapNotFound(err, "record", id.String())
		}
		return writeAudit(ctx, tx, s.cal, models.AuditDelete, "Record deleted", describe(rec), user)
	})
}

// apply validates in and copies it onto rec. Nothing is written on error.
func (s *RecordService) apply(rec *models.ServiceRecord, in RecordInput, creating bool) error {
	name := strings.TrimSpace(in.CustomerName)
	phone := strings.TrimSpace(in.PhoneNumber)
	if name == "" && phone == "" {
		return invalid("customerName", "customer name or phone number is required")
	}
	if phone != "" && utils.NormalizePhone(phone) == "" {
		return invalid("phoneNumber", "%q is not a phone number", phone)
	}
	if in.WarrantyMonths < 0 {
		return invalid("warrantyMonths", "must not be negative")
	}

	reception := s.cal.Today()
	if strings.TrimSpace(in.ReceptionDate) != "" {
		d, err := utils.ParseJalali(in.ReceptionDate)
		if err != nil {
			return invalid("receptionDate", "%v", err)
		}
		reception = d
	} else if !creating {
		if d, err := utils.ParseJalali(rec.ReceptionDate); err == nil {
			reception = d
		}
	}

	avType := models.AntivirusNone
	if strings.TrimSpace(in.AntivirusType) != "" {
		t, ok := models.ParseAntivirusType(in.AntivirusType)
		if !ok {
			return invalid("antivirusType", "unknown antivirus type %q", in.AntivirusType)
		}
		avType = t
	}

	warranty := ""
	if strings.TrimSpace(in.WarrantyExpiration) != "" {
		d, err := utils.ParseJalali(in.WarrantyExpiration)
		if err != nil {
			return invalid("warrantyExpiration", "%v", err)
		}
		warranty = d.String()
	} else if in.WarrantyMonths > 0 {
		warranty = reception.AddMonths(in.WarrantyMonths).String()
	}

	antivirus := ""
	if avType != models.AntivirusNone {
		if strings.TrimSpace(in.AntivirusExpiration) != "" {
			d, err := utils.ParseJalali(in.AntivirusExpiration)
			if err != nil {
				return invalid("antivirusExpiration", "%v", err)
			}
			antivirus = d.String()
		} else {
			antivirus = reception.AddMonths(12 * s.antivirusTermYears).String()
		}
	}

	price := ""
	if strings.TrimSpace(in.TotalPrice) != "" {
		d, err := utils.ParseAmount(in.TotalPrice)
		if err != nil {
			return invalid("totalPrice", "%v", err)
		}
		price = d.String()
	}

	rec.CustomerName = name
	rec.PhoneNumber = phone
	rec.Brand = strings.TrimSpace(in.Brand)
	rec.Model = strings.TrimSpace(in.Model)
	rec.SerialNumber = strings.TrimSpace(in.SerialNumber)
	rec.WarrantyCompany = strings.TrimSpace(in.WarrantyCompany)
	rec.WarrantyMonths = in.WarrantyMonths
	rec.WarrantyExpiration = warranty
	rec.ReceptionDate = reception.String()
	rec.HasWindows = in.HasWindows
	rec.AntivirusType = avType
	rec.AntivirusExpiration = antivirus
	rec.TotalPrice = price
	if note := strings.TrimSpace(in.Description); note != "" {
		if creating {
			rec.Description = note
		} else {
			rec.AppendNote(note)
		}
	}
	return nil
}

func matchRecord(r *models.ServiceRecord, query string) bool {
	q := strings.ToLower(strings.TrimSpace(utils.FoldDigits(query)))
	if q == "" {
		return true
	}
	for _, field := range []string{r.CustomerName, r.Model, r.Brand, r.SerialNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	if key := utils.NormalizePhone(q); key != "" {
		return strings.Contains(utils.NormalizePhone(r.PhoneNumber), key)
	}
	return false
}

func describe(r *models.ServiceRecord) string {
	device := strings.TrimSpace(r.Brand + " " + r.Model)
	if device == "" {
		device = "device"
	}
	return fmt.Sprintf("%s for %s (%s) [%s]", device, r.CustomerName, r.PhoneNumber, r.ID)
}

func receptionDay(r *models.ServiceRecord) int64 {
	d, err := utils.ParseJalali(r.ReceptionDate)
	if err != nil {
		return math.MinInt64
	}
	return d.DayNumber()
}

// MostRecentFirst is the one ordering used wherever "most recent" matters:
// newest receptionDate first (unparseable dates last), then newest createdAt,
// then descending id. The input slice is not modified.
func MostRecentFirst(recs []models.ServiceRecord) []models.ServiceRecord {
	type ranked struct {
		rec models.ServiceRecord
		day int64
	}
	rs := make([]ranked, len(recs))
	for i := range recs {
		rs[i] = ranked{rec: recs[i], day: receptionDay(&recs[i])}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.day != b.day {
			return a.day > b.day
		}
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.rec.ID.String() > b.rec.ID.String()
	})
	out := make([]models.ServiceRecord, len(rs))
	for i := range rs {
		out[i] = rs[i].rec
	}
	return out
}

func writeAudit(ctx context.Context, tx repository.Store, cal *Calendar, typ models.AuditType, action, details, user string) error {
	if user == "" {
		user = "system"
	}
	entry := &models.AuditLog{
		Action:    action,
		Details:   details,
		User:      user,
		Type:      typ,
		Timestamp: cal.Now(),
	}
	if err := tx.Audit().Create(ctx, entry); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
