package repository

import (
	"context"
	"maps"
	"sync"
	"time"

	"repairdesk-backend/models"

	"github.com/google/uuid"
)

type memState struct {
	records       map[uuid.UUID]models.ServiceRecord
	repairs       map[uuid.UUID]models.RepairTicket
	renewals      map[uuid.UUID]models.RenewalEvent
	notifications map[uuid.UUID]models.NotificationLog
	audit         map[uuid.UUID]models.AuditLog
}

func newMemState() *memState {
	return &memState{
		records:       map[uuid.UUID]models.ServiceRecord{},
		repairs:       map[uuid.UUID]models.RepairTicket{},
		renewals:      map[uuid.UUID]models.RenewalEvent{},
		notifications: map[uuid.UUID]models.NotificationLog{},
		audit:         map[uuid.UUID]models.AuditLog{},
	}
}

func (m *memState) clone() *memState {
	return &memState{
		records:       maps.Clone(m.records),
		repairs:       maps.Clone(m.repairs),
		renewals:      maps.Clone(m.renewals),
		notifications: maps.Clone(m.notifications),
		audit:         maps.Clone(m.audit),
	}
}

// MemoryStore keeps everything in process memory. Atomic works on a copy of
// the state and swaps it in only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) run(fn func(*memState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemoryStore) Records() RecordRepository             { return memRecords{s.run} }
func (s *MemoryStore) Repairs() RepairRepository             { return memRepairs{s.run} }
func (s *MemoryStore) Renewals() RenewalRepository           { return memRenewals{s.run} }
func (s *MemoryStore) Notifications() NotificationRepository { return memNotifications{s.run} }
func (s *MemoryStore) Audit() AuditRepository                { return memAudit{s.run} }

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// memTx is the view handed to Atomic callbacks; the store lock is already held.
type memTx struct {
	state *memState
}

func (t *memTx) run(fn func(*memState) error) error { return fn(t.state) }

func (t *memTx) Records() RecordRepository             { return memRecords{t.run} }
func (t *memTx) Repairs() RepairRepository             { return memRepairs{t.run} }
func (t *memTx) Renewals() RenewalRepository           { return memRenewals{t.run} }
func (t *memTx) Notifications() NotificationRepository { return memNotifications{t.run} }
func (t *memTx) Audit() AuditRepository                { return memAudit{t.run} }

func (t *memTx) Atomic(ctx context.Context, fn func(tx Store) error) error {
	inner := &memTx{state: t.state.clone()}
	if err := fn(inner); err != nil {
		return err
	}
	t.state = inner.state
	return nil
}

func (t *memTx) Close() error { return nil }

type memRun func(func(*memState) error) error

type memRecords struct{ run memRun }

func (r memRecords) Create(ctx context.Context, rec *models.ServiceRecord) error {
	stampRecord(rec)
	return r.run(func(m *memState) error {
		m.records[rec.ID] = *rec
		return nil
	})
}

func (r memRecords) Update(ctx context.Context, rec *models.ServiceRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return r.run(func(m *memState) error {
		if _, ok := m.records[rec.ID]; !ok {
			return ErrNotFound
		}
		m.records[rec.ID] = *rec
		return nil
	})
}

func (r memRecords) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error) {
	var out *models.ServiceRecord
	err := r.run(func(m *memState) error {
		rec, ok := m.records[id]
		if !ok {
			return ErrNotFound
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r memRecords) List(ctx context.Context) ([]models.ServiceRecord, error) {
	var out []models.ServiceRecord
	err := r.run(func(m *memState) error {
		for _, rec := range m.records {
			out = append(out, rec)
		}
		return nil
	})
	sortRecords(out)
	return out, err
}

func (r memRecords) Delete(ctx context.Context, id uuid.UUID) error {
	return r.run(func(m *memState) error {
		if _, ok := m.records[id]; !ok {
			return ErrNotFound
		}
		delete(m.records, id)
		return nil
	})
}

type memRepairs struct{ run memRun }

func (r memRepairs) Create(ctx context.Context, t *models.RepairTicket) error {
	stampRepair(t)
	return r.run(func(m *memState) error {
		m.repairs[t.ID] = *t
		return nil
	})
}

func (r memRepairs) Update(ctx context.Context, t *models.RepairTicket) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	return r.run(func(m *memState) error {
		if _, ok := m.repairs[t.ID]; !ok {
			return ErrNotFound
		}
		m.repairs[t.ID] = *t
		return nil
	})
}

func (r memRepairs) GetByID(ctx context.Context, id uuid.UUID) (*models.RepairTicket, error) {
	var out *models.RepairTicket
	err := r.run(func(m *memState) error {
		t, ok := m.repairs[id]
		if !ok {
			return ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r memRepairs) GetByTrackingCode(ctx context.Context, code string) (*models.RepairTicket, error) {
	var out *models.RepairTicket
	err := r.run(func(m *memState) error {
		for _, t := range m.repairs {
			if t.TrackingCode == code {
				out = &t
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memRepairs) List(ctx context.Context) ([]models.RepairTicket, error) {
	var out []models.RepairTicket
	err := r.run(func(m *memState) error {
		for _, t := range m.repairs {
			out = append(out, t)
		}
		return nil
	})
	sortRepairs(out)
	return out, err
}

func (r memRepairs) Delete(ctx context.Context, id uuid.UUID) error {
	return r.run(func(m *memState) error {
		if _, ok := m.repairs[id]; !ok {
			return ErrNotFound
		}
		delete(m.repairs, id)
		return nil
	})
}

type memRenewals struct{ run memRun }

func (r memRenewals) Create(ctx context.Context, e *models.RenewalEvent) error {
	stampRenewal(e)
	return r.run(func(m *memState) error {
		m.renewals[e.ID] = *e
		return nil
	})
}

func (r memRenewals) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]models.RenewalEvent, error) {
	var out []models.RenewalEvent
	err := r.run(func(m *memState) error {
		for _, e := range m.renewals {
			if e.RecordID == recordID {
				out = append(out, e)
			}
		}
		return nil
	})
	sortRenewals(out)
	return out, err
}

func (r memRenewals) List(ctx context.Context) ([]models.RenewalEvent, error) {
	var out []models.RenewalEvent
	err := r.run(func(m *memState) error {
		for _, e := range m.renewals {
			out = append(out, e)
		}
		return nil
	})
	sortRenewals(out)
	return out, err
}

type memNotifications struct{ run memRun }

func (r memNotifications) Create(ctx context.Context, n *models.NotificationLog) error {
	stampNotification(n)
	return r.run(func(m *memState) error {
		m.notifications[n.ID] = *n
		return nil
	})
}

func (r memNotifications) Update(ctx context.Context, n *models.NotificationLog) error {
	n.UpdatedAt = time.Now()
	return r.run(func(m *memState) error {
		if _, ok := m.notifications[n.ID]; !ok {
			return ErrNotFound
		}
		m.notifications[n.ID] = *n
		return nil
	})
}

func (r memNotifications) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	var out *models.NotificationLog
	err := r.run(func(m *memState) error {
		n, ok := m.notifications[id]
		if !ok {
			return ErrNotFound
		}
		out = &n
		return nil
	})
	return out, err
}

func (r memNotifications) all() ([]models.NotificationLog, error) {
	var out []models.NotificationLog
	err := r.run(func(m *memState) error {
		for _, n := range m.notifications {
			out = append(out, n)
		}
		return nil
	})
	sortNotifications(out)
	return out, err
}

func (r memNotifications) List(ctx context.Context, limit int) ([]models.NotificationLog, error) {
	out, err := r.all()
	return head(out, limit), err
}

func (r memNotifications) ListUndelivered(ctx context.Context, maxRetries, limit int) ([]models.NotificationLog, error) {
	out, err := r.all()
	if err != nil {
		return nil, err
	}
	return undelivered(out, maxRetries, limit), nil
}

func (r memNotifications) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.run(func(m *memState) error {
		for id, l := range m.notifications {
			if l.CreatedAt.Before(cutoff) {
				delete(m.notifications, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memNotifications) TrimTo(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	all, err := r.all()
	if err != nil || len(all) <= keep {
		return 0, err
	}
	var n int64
	err = r.run(func(m *memState) error {
		for _, l := range all[keep:] {
			delete(m.notifications, l.ID)
			n++
		}
		return nil
	})
	return n, err
}

type memAudit struct{ run memRun }

func (r memAudit) Create(ctx context.Context, a *models.AuditLog) error {
	stampAudit(a)
	return r.run(func(m *memState) error {
		m.audit[a.ID] = *a
		return nil
	})
}

func (r memAudit) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	err := r.run(func(m *memState) error {
		for _, a := range m.audit {
			out = append(out, a)
		}
		return nil
	})
	sortAudit(out)
	return head(out, limit), err
}

func (r memAudit) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.run(func(m *memState) error {
		for id, a := range m.audit {
			if a.Timestamp.Before(cutoff) {
				delete(m.audit, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memAudit) TrimTo(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	all, err := r.List(ctx, 0)
	if err != nil || len(all) <= keep {
		return 0, err
	}
	var n int64
	err = r.run(func(m *memState) error {
		for _, a := range all[keep:] {
			delete(m.audit, a.ID)
			n++
		}
		return nil
	})
	return n, err
}
