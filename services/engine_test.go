package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Tehran standard time without DST, so tests do not depend on tzdata.
var tehran = time.FixedZone("IRST", 3*3600+1800)

// fixedNow is Nowruz 1403, so "today" is 1403/01/01.
var fixedNow = time.Date(2024, 3, 20, 12, 0, 0, 0, tehran)

type sentMessage struct {
	Phone   string
	Message string
}

type fakeTransport struct {
	mu   sync.Mutex
	fail bool
	sent []sentMessage
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(ctx context.Context, phone, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, sentMessage{Phone: phone, Message: message})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeTransport) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeTransport) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func newTestEngine(t *testing.T, configure ...func(*Options)) (*Engine, *fakeTransport) {
	t.Helper()
	opts := DefaultOptions()
	opts.Location = tehran
	opts.Now = func() time.Time { return fixedNow }
	for _, fn := range configure {
		fn(&opts)
	}
	transport := &fakeTransport{}
	return NewEngine(repository.NewMemoryStore(), transport, opts, zaptest.NewLogger(t)), transport
}

// seed writes rec straight to the store, bypassing validation.
func seed(t *testing.T, e *Engine, rec models.ServiceRecord) *models.ServiceRecord {
	t.Helper()
	if rec.AntivirusType == "" {
		rec.AntivirusType = models.AntivirusNone
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = fixedNow
	}
	require.NoError(t, e.Store.Records().Create(context.Background(), &rec))
	return &rec
}

func auditOfType(t *testing.T, e *Engine, typ models.AuditType) []models.AuditLog {
	t.Helper()
	all, err := e.Store.Audit().List(context.Background(), 0)
	require.NoError(t, err)
	var out []models.AuditLog
	for _, a := range all {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
