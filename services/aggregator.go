package services

import (
	"context"
	"sort"
	"strings"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"
	"repairdesk-backend/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregation is the customer view of one snapshot of the record store.
type Aggregation struct {
	Customers []*models.Customer `json:"customers"`
	// Skipped counts records whose phone normalizes to nothing.
	Skipped int `json:"skipped"`
}

// Aggregator derives customers from records on every call. Nothing is cached.
type Aggregator struct {
	store   repository.Store
	records *RecordService
	log     *zap.Logger
}

// Aggregate groups recs by normalized phone. Records are visited most recent
// first, so the display name and phone come from the newest record that has
// one. Malformed prices count as zero and malformed dates never abort the pass.
func (a *Aggregator) Aggregate(recs []models.ServiceRecord) Aggregation {
	var result Aggregation
	byKey := map[string]*models.Customer{}

	for _, rec := range MostRecentFirst(recs) {
		rec := rec
		key := utils.NormalizePhone(rec.PhoneNumber)
		if key == "" {
			result.Skipped++
			a.log.Debug("record skipped in aggregation",
				zap.String("id", rec.ID.String()),
				zap.String("phone", rec.PhoneNumber))
			continue
		}

		c, ok := byKey[key]
		if !ok {
			c = &models.Customer{Key: key, Phone: rec.PhoneNumber, TotalSpent: decimal.Zero}
			byKey[key] = c
		}
		if c.Name == "" {
			c.Name = strings.TrimSpace(rec.CustomerName)
		}
		c.TotalSpent = c.TotalSpent.Add(utils.AmountOrZero(rec.TotalPrice))
		c.ItemsBought++
		c.Devices = append(c.Devices, &rec)

		if c.LastVisit == "" {
			if d, err := utils.ParseJalali(rec.ReceptionDate); err == nil {
				c.LastVisit = d.String()
			}
		}

		view := a.records.View(&rec)
		if view.Warranty.Status == StatusExpiringSoon && !c.HasTag(models.TagWarrantyExpiring) {
			c.Tags = append(c.Tags, models.TagWarrantyExpiring)
		}
		if view.Antivirus.Status == StatusExpiringSoon && !c.HasTag(models.TagAntivirusExpiring) {
			c.Tags = append(c.Tags, models.TagAntivirusExpiring)
		}
	}

	result.Customers = make([]*models.Customer, 0, len(byKey))
	for _, c := range byKey {
		if c.Tags == nil {
			c.Tags = []models.CustomerTag{}
		}
		c.Repairs = []*models.RepairTicket{}
		result.Customers = append(result.Customers, c)
	}
	sortCustomers(result.Customers)

	if result.Skipped > 0 {
		a.log.Info("aggregation skipped records without a phone number", zap.Int("skipped", result.Skipped))
	}
	return result
}

// AttachRepairs folds repair tickets into agg by the same phone key. A phone
// seen only on tickets becomes a customer with no devices. Ticket costs are
// not part of totalSpent.
func (a *Aggregator) AttachRepairs(agg *Aggregation, tickets []models.RepairTicket) {
	byKey := make(map[string]*models.Customer, len(agg.Customers))
	for _, c := range agg.Customers {
		byKey[c.Key] = c
	}
	for _, t := range MostRecentRepairsFirst(tickets) {
		t := t
		key := utils.NormalizePhone(t.PhoneNumber)
		if key == "" {
			a.log.Debug("repair skipped in aggregation", zap.String("id", t.ID.String()))
			continue
		}
		c, ok := byKey[key]
		if !ok {
			c = &models.Customer{
				Key:        key,
				Phone:      t.PhoneNumber,
				TotalSpent: decimal.Zero,
				Tags:       []models.CustomerTag{},
				Devices:    []*models.ServiceRecord{},
			}
			byKey[key] = c
			agg.Customers = append(agg.Customers, c)
		}
		if c.Name == "" {
			c.Name = strings.TrimSpace(t.CustomerName)
		}
		c.RepairsCount++
		if t.Status.Open() {
			c.OpenRepairs++
		}
		c.Repairs = append(c.Repairs, &t)
		if d, err := utils.ParseJalali(t.ServiceDate); err == nil && laterThan(d, c.LastVisit) {
			c.LastVisit = d.String()
		}
	}
	for _, c := range agg.Customers {
		if c.Repairs == nil {
			c.Repairs = []*models.RepairTicket{}
		}
	}
	sortCustomers(agg.Customers)
}

// snapshot aggregates records and repair tickets read in one transaction.
func (a *Aggregator) snapshot(ctx context.Context) (Aggregation, error) {
	var recs []models.ServiceRecord
	var tickets []models.RepairTicket
	err := a.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		if recs, err = tx.Records().List(ctx); err != nil {
			return err
		}
		tickets, err = tx.Repairs().List(ctx)
		return err
	})
	if err != nil {
		return Aggregation{}, err
	}
	agg := a.Aggregate(recs)
	a.AttachRepairs(&agg, tickets)
	return agg, nil
}

// Customers aggregates the whole store and filters by query, which matches
// the customer name or any written form of the phone number.
func (a *Aggregator) Customers(ctx context.Context, query string) (Aggregation, error) {
	agg, err := a.snapshot(ctx)
	if err != nil {
		return Aggregation{}, err
	}

	q := strings.TrimSpace(utils.FoldDigits(query))
	if q == "" {
		return agg, nil
	}
	filtered := agg.Customers[:0]
	key := utils.NormalizePhone(q)
	for _, c := range agg.Customers {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) ||
			(key != "" && strings.Contains(c.Key, key)) {
			filtered = append(filtered, c)
		}
	}
	agg.Customers = filtered
	return agg, nil
}

// Lookup finds one customer by any written form of their phone number.
func (a *Aggregator) Lookup(ctx context.Context, phone string) (*models.Customer, error) {
	key := utils.NormalizePhone(phone)
	if key == "" {
		return nil, invalid("phone", "phone number is required")
	}
	agg, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range agg.Customers {
		if c.Key == key {
			return c, nil
		}
	}
	return nil, &NotFoundError{Entity: "customer", ID: key}
}

// sortCustomers orders by last visit, newest first, customers without one
// last, then by key.
func sortCustomers(cs []*models.Customer) {
	day := func(c *models.Customer) (int64, bool) {
		d, err := utils.ParseJalali(c.LastVisit)
		if err != nil {
			return 0, false
		}
		return d.DayNumber(), true
	}
	sort.SliceStable(cs, func(i, j int) bool {
		di, iok := day(cs[i])
		dj, jok := day(cs[j])
		if iok != jok {
			return iok
		}
		if di != dj {
			return di > dj
		}
		return cs[i].Key < cs[j].Key
	})
}

func laterThan(d utils.JalaliDate, current string) bool {
	c, err := utils.ParseJalali(current)
	if err != nil {
		return true
	}
	return d.DayNumber() > c.DayNumber()
}
