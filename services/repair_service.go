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

// RepairInput carries the fields of a new RepairTicket.
type RepairInput struct {
	CustomerName       string `json:"customerName" binding:"max=120"`
	PhoneNumber        string `json:"phoneNumber" binding:"max=32"`
	DeviceModel        string `json:"deviceModel" binding:"max=120"`
	Issue              string `json:"issue"`
	ServiceType        string `json:"serviceType" binding:"omitempty,oneof=hardware software"`
	Status             string `json:"status" binding:"omitempty,oneof=in_progress waiting_parts completed cancelled"`
	Cost               string `json:"cost"`
	ServiceDate        string `json:"serviceDate" binding:"omitempty,jalali"`
	WarrantyExpiration string `json:"warrantyExpiration" binding:"omitempty,jalali"`
	Description        string `json:"description"`
}

// RepairPatch changes only the fields that are present.
type RepairPatch struct {
	CustomerName       *string `json:"customerName" binding:"omitempty,max=120"`
	PhoneNumber        *string `json:"phoneNumber" binding:"omitempty,max=32"`
	DeviceModel        *string `json:"deviceModel" binding:"omitempty,max=120"`
	Issue              *string `json:"issue"`
	ServiceType        *string `json:"serviceType" binding:"omitempty,oneof=hardware software"`
	Status             *string `json:"status" binding:"omitempty,oneof=in_progress waiting_parts completed cancelled"`
	Cost               *string `json:"cost"`
	ServiceDate        *string `json:"serviceDate" binding:"omitempty,jalali"`
	WarrantyExpiration *string `json:"warrantyExpiration"`
	Description        *string `json:"description"`
}

// RepairView is a ticket with its warranty classification attached.
type RepairView struct {
	*models.RepairTicket
	Warranty Expiry `json:"warranty"`
}

type RepairService struct {
	store          repository.Store
	cal            *Calendar
	mu             *sync.Mutex
	warrantyMonths int
	log            *zap.Logger
}

func (s *RepairService) WarrantyMonths() int { return s.warrantyMonths }

// View classifies the warranty. A cancelled ticket carries no warranty.
func (s *RepairService) View(t *models.RepairTicket) RepairView {
	if t.Status == models.RepairCancelled {
		return RepairView{RepairTicket: t, Warranty: Expiry{Date: t.WarrantyExpiration, Status: StatusUnknown}}
	}
	return RepairView{RepairTicket: t, Warranty: s.cal.Expiry(t.WarrantyExpiration)}
}

func (s *RepairService) Create(ctx context.Context, in RepairInput, user string) (*models.RepairTicket, error) {
	t := &models.RepairTicket{ID: uuid.New()}
	if err := s.apply(t, in, true); err != nil {
		return nil, err
	}
	t.TrackingCode = trackingCode(t.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cal.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if err := tx.Repairs().Create(ctx, t); err != nil {
			return fmt.Errorf("create repair: %w", err)
		}
		return writeAudit(ctx, tx, s.cal, models.AuditCreate, "Repair received", describeRepair(t), user)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("repair received",
		zap.String("id", t.ID.String()),
		zap.String("trackingCode", t.TrackingCode),
		zap.String("user", user))
	return t, nil
}

// Update applies p to the ticket. Moving the service date moves a warranty
// that was not given explicitly in the same patch.
func (s *RepairService) Update(ctx context.Context, id uuid.UUID, p RepairPatch, user string) (*models.RepairTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t *models.RepairTicket
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		t, err = tx.Repairs().GetByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "repair", id.String())
		}
		previous := t.Status
		if err := s.apply(t, p.merge(t), false); err != nil {
			return err
		}
		t.UpdatedAt = s.cal.Now()
		if err := tx.Repairs().Update(ctx, t); err != nil {
			return mapNotFound(err, "repair", id.String())
		}
		action := "Repair updated"
		if previous != t.Status {
			action = fmt.Sprintf("Repair status %s -> %s", previous, t.Status)
		}
		return writeAudit(ctx, tx, s.cal, models.AuditUpdate, action, describeRepair(t), user)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *RepairService) Get(ctx context.Context, id uuid.UUID) (*models.RepairTicket, error) {
	t, err := s.store.Repairs().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "repair", id.String())
	}
	return t, nil
}

// Track finds a ticket by the code handed to the customer.
func (s *RepairService) Track(ctx context.Context, code string) (*models.RepairTicket, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalid("code", "tracking code is required")
	}
	t, err := s.store.Repairs().GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, mapNotFound(err, "repair", code)
	}
	return t, nil
}

// List returns tickets most recent first. status, when set, keeps only that
// status; "open" keeps every ticket still in the shop.
func (s *RepairService) List(ctx context.Context, query, status string) ([]RepairView, error) {
	tickets, err := s.store.Repairs().List(ctx)
	if err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	views := []RepairView{}
	for _, t := range MostRecentRepairsFirst(tickets) {
		t := t
		switch {
		case status == "":
		case status == "open":
			if !t.Status.Open() {
				continue
			}
		case string(t.Status) != status:
			continue
		}
		if !matchRepair(&t, query) {
			continue
		}
		views = append(views, s.View(&t))
	}
	return views, nil
}

func (s *RepairService) Delete(ctx context.Context, id uuid.UUID, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Atomic(ctx, func(tx repository.Store) error {
		t, err := tx.Repairs().GetByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "repair", id.String())
		}
		if err := tx.Repairs().Delete(ctx, id); err != nil {
			return mapNotFound(err, "repair", id.String())
		}
		return writeAudit(ctx, tx, s.cal, models.AuditDelete, "Repair deleted", describeRepair(t), user)
	})
}

func (p RepairPatch) merge(t *models.RepairTicket) RepairInput {
	in := RepairInput{
		CustomerName:       pick(p.CustomerName, t.CustomerName),
		PhoneNumber:        pick(p.PhoneNumber, t.PhoneNumber),
		DeviceModel:        pick(p.DeviceModel, t.DeviceModel),
		Issue:              pick(p.Issue, t.Issue),
		ServiceType:        pick(p.ServiceType, string(t.ServiceType)),
		Status:             pick(p.Status, string(t.Status)),
		Cost:               pick(p.Cost, t.Cost),
		ServiceDate:        pick(p.ServiceDate, t.ServiceDate),
		WarrantyExpiration: pick(p.WarrantyExpiration, t.WarrantyExpiration),
	}
	if p.ServiceDate != nil && p.WarrantyExpiration == nil {
		in.WarrantyExpiration = ""
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	return in
}

func pick(v *string, current string) string {
	if v == nil {
		return current
	}
	return *v
}

// apply validates in and copies it onto t. Nothing is written on error.
func (s *RepairService) apply(t *models.RepairTicket, in RepairInput, creating bool) error {
	name := strings.TrimSpace(in.CustomerName)
	phone := strings.TrimSpace(in.PhoneNumber)
	if name == "" && phone == "" {
		return invalid("customerName", "customer name or phone number is required")
	}
	if phone != "" && utils.NormalizePhone(phone) == "" {
		return invalid("phoneNumber", "%q is not a phone number", phone)
	}

	serviceType := models.RepairHardware
	if strings.TrimSpace(in.ServiceType) != "" {
		st, ok := models.ParseRepairServiceType(in.ServiceType)
		if !ok {
			return invalid("serviceType", "unknown service type %q", in.ServiceType)
		}
		serviceType = st
	}

	status := models.RepairInProgress
	if strings.TrimSpace(in.Status) != "" {
		st, ok := models.ParseRepairStatus(in.Status)
		if !ok {
			return invalid("status", "unknown repair status %q", in.Status)
		}
		status = st
	}

	serviceDate := s.cal.Today()
	if strings.TrimSpace(in.ServiceDate) != "" {
		d, err := utils.ParseJalali(in.ServiceDate)
		if err != nil {
			return invalid("serviceDate", "%v", err)
		}
		serviceDate = d
	}

	warranty := ""
	if strings.TrimSpace(in.WarrantyExpiration) != "" {
		d, err := utils.ParseJalali(in.WarrantyExpiration)
		if err != nil {
			return invalid("warrantyExpiration", "%v", err)
		}
		warranty = d.String()
	} else if s.warrantyMonths > 0 {
		warranty = serviceDate.AddMonths(s.warrantyMonths).String()
	}
	if status == models.RepairCancelled {
		warranty = ""
	}

	cost := ""
	if strings.TrimSpace(in.Cost) != "" {
		d, err := utils.ParseAmount(in.Cost)
		if err != nil {
			return invalid("cost", "%v", err)
		}
		cost = d.String()
	}

	switch {
	case status == models.RepairCompleted && t.CompletedDate == "":
		t.CompletedDate = s.cal.Today().String()
	case status != models.RepairCompleted:
		t.CompletedDate = ""
	}

	t.CustomerName = name
	t.PhoneNumber = phone
	t.DeviceModel = strings.TrimSpace(in.DeviceModel)
	t.Issue = strings.TrimSpace(in.Issue)
	t.ServiceType = serviceType
	t.Status = status
	t.Cost = cost
	t.ServiceDate = serviceDate.String()
	t.WarrantyExpiration = warranty
	if note := strings.TrimSpace(in.Description); note != "" {
		if creating {
			t.Description = note
		} else {
			t.AppendNote(note)
		}
	}
	return nil
}

// trackingCode is the short code printed on the intake receipt.
func trackingCode(id uuid.UUID) string {
	return "RP-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func matchRepair(t *models.RepairTicket, query string) bool {
	q := strings.ToLower(strings.TrimSpace(utils.FoldDigits(query)))
	if q == "" {
		return true
	}
	for _, field := range []string{t.CustomerName, t.DeviceModel, t.Issue, t.TrackingCode} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	if key := utils.NormalizePhone(q); key != "" {
		return strings.Contains(utils.NormalizePhone(t.PhoneNumber), key)
	}
	return false
}

func describeRepair(t *models.RepairTicket) string {
	device := t.DeviceModel
	if device == "" {
		device = "device"
	}
	return fmt.Sprintf("%s %s for %s (%s) [%s]", t.TrackingCode, device, t.CustomerName, t.PhoneNumber, t.ID)
}

// MostRecentRepairsFirst orders tickets like MostRecentFirst orders records,
// keyed on the service date.
func MostRecentRepairsFirst(tickets []models.RepairTicket) []models.RepairTicket {
	out := append([]models.RepairTicket(nil), tickets...)
	days := make(map[uuid.UUID]int64, len(out))
	for i := range out {
		days[out[i].ID] = math.MinInt64
		if d, err := utils.ParseJalali(out[i].ServiceDate); err == nil {
			days[out[i].ID] = d.DayNumber()
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if days[a.ID] != days[b.ID] {
			return days[a.ID] > days[b.ID]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	return out
}
