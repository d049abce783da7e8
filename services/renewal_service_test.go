package services

import (
	"context"
	"testing"

	"repairdesk-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewWarrantyKeepsRemainingDays(t *testing.T) {
	e, transport := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{
		CustomerName:       "Ali",
		PhoneNumber:        "09121234567",
		Model:              "X515",
		WarrantyExpiration: "1403/01/11",
		Description:        "sold with bag",
	}, "")
	require.NoError(t, err)

	result, err := e.Renewals.Renew(ctx, RenewalRequest{
		RecordID:       rec.ID,
		Target:         models.TargetWarranty,
		DurationMonths: 6,
		User:           "operator",
	})
	require.NoError(t, err)

	assert.Equal(t, "1403/07/11", result.Record.WarrantyExpiration)
	assert.Equal(t, "sold with bag\n1403/01/01: warranty renewed for 6 months until 1403/07/11", result.Record.Description)

	stored, err := e.Records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "1403/07/11", stored.WarrantyExpiration)
	assert.Equal(t, result.Record.Description, stored.Description)

	renewAudit := auditOfType(t, e, models.AuditRenew)
	require.Len(t, renewAudit, 1)
	assert.Equal(t, "operator", renewAudit[0].User)

	history, err := e.Renewals.History(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "1403/01/11", history[0].PreviousExpiry)
	assert.Equal(t, "1403/01/11", history[0].Base)
	assert.Equal(t, "1403/07/11", history[0].NewExpiry)

	require.NotNil(t, result.Notification)
	assert.Equal(t, models.NotificationSent, result.Notification.Status)
	assert.Equal(t, models.CategoryRenewalConfirmation, result.Notification.Category)
	msgs := transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "09121234567", msgs[0].Phone)
	assert.Equal(t, "Dear Ali, the warranty of your X515 has been renewed until 1403/07/11.", msgs[0].Message)
}

func TestRenewAnchorsExpiredAndMalformedOnToday(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) { o.NotifyOnRenewal = false })
	ctx := context.Background()

	expired := seed(t, e, models.ServiceRecord{CustomerName: "Ali", PhoneNumber: "09121234567", WarrantyExpiration: "1402/06/01"})
	broken := seed(t, e, models.ServiceRecord{CustomerName: "Sara", PhoneNumber: "09351112233", WarrantyExpiration: "someday"})
	todayRec := seed(t, e, models.ServiceRecord{CustomerName: "Reza", PhoneNumber: "09191234567", WarrantyExpiration: "1403/01/01"})

	for _, tt := range []struct {
		rec  *models.ServiceRecord
		want string
	}{
		{expired, "1404/01/01"},
		{broken, "1404/01/01"},
		{todayRec, "1404/01/01"},
	} {
		result, err := e.Renewals.Renew(ctx, RenewalRequest{RecordID: tt.rec.ID, Target: models.TargetWarranty, DurationMonths: 12})
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.Record.WarrantyExpiration)
		assert.Equal(t, "1403/01/01", result.Event.Base)
		assert.Equal(t, "system", result.Event.User)
		assert.Nil(t, result.Notification)
	}
}

func TestRenewAntivirusOnNoneSetsType(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567"}, "")
	require.NoError(t, err)
	require.Equal(t, models.AntivirusNone, rec.AntivirusType)

	result, err := e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetAntivirus, DurationMonths: 12})
	require.NoError(t, err)
	assert.Equal(t, models.AntivirusSingle, result.Record.AntivirusType)
	assert.Equal(t, "1404/01/01", result.Record.AntivirusExpiration)
	assert.Empty(t, result.Event.PreviousExpiry)

	view := e.Records.View(result.Record)
	assert.Equal(t, StatusActive, view.Antivirus.Status)
}

func TestRenewRejectsBadRequests(t *testing.T) {
	e, transport := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567", WarrantyExpiration: "1403/05/01"}, "")
	require.NoError(t, err)

	var verr *ValidationError
	_, err = e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetWarranty, DurationMonths: 7})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "durationMonths", verr.Field)

	_, err = e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: "windows", DurationMonths: 6})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "target", verr.Field)

	var nf *NotFoundError
	_, err = e.Renewals.Renew(ctx, RenewalRequest{RecordID: uuid.New(), Target: models.TargetWarranty, DurationMonths: 6})
	require.ErrorAs(t, err, &nf)

	stored, err := e.Records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "1403/05/01", stored.WarrantyExpiration)
	assert.Empty(t, stored.Description)
	assert.Empty(t, auditOfType(t, e, models.AuditRenew))
	assert.Empty(t, transport.messages())

	events, err := e.Store.Renewals().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRenewSurvivesTransportFailure(t *testing.T) {
	e, transport := newTestEngine(t)
	transport.setFail(true)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567", WarrantyExpiration: "1403/05/01"}, "")
	require.NoError(t, err)

	result, err := e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetWarranty, DurationMonths: 24})
	require.NoError(t, err)
	assert.Equal(t, "1405/05/01", result.Record.WarrantyExpiration)
	require.NotNil(t, result.Notification)
	assert.Equal(t, models.NotificationFailed, result.Notification.Status)

	logs, err := e.Notifications.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.NotificationFailed, logs[0].Status)
	assert.Equal(t, "gateway unavailable", logs[0].ErrorMessage)
}

func TestRenewWithoutPhoneSkipsNotification(t *testing.T) {
	e, transport := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Walk-in"}, "")
	require.NoError(t, err)
	result, err := e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetWarranty, DurationMonths: 6})
	require.NoError(t, err)
	assert.Nil(t, result.Notification)
	assert.Empty(t, transport.messages())
}

func TestNotifyOnRenewalToggle(t *testing.T) {
	e, transport := newTestEngine(t)
	ctx := context.Background()
	e.Renewals.SetNotifyOnRenewal(false)
	assert.False(t, e.Renewals.NotifyOnRenewal())

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567"}, "")
	require.NoError(t, err)
	_, err = e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetWarranty, DurationMonths: 6})
	require.NoError(t, err)
	assert.Empty(t, transport.messages())
}

func TestAllowedDurationsAreNormalized(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) { o.AllowedDurations = []int{12, 0, 6, 12, -3} })
	assert.Equal(t, []int{6, 12}, e.Renewals.AllowedDurations())

	fallback, _ := newTestEngine(t, func(o *Options) { o.AllowedDurations = nil })
	assert.Equal(t, []int{6, 12, 24}, fallback.Renewals.AllowedDurations())
}
