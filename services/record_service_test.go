package services

import (
	"context"
	"testing"
	"time"

	"repairdesk-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecordDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{
		CustomerName:   "  Ali Rezaei ",
		PhoneNumber:    "0912 123 4567",
		Brand:          "Asus",
		Model:          "X515",
		WarrantyMonths: 12,
		AntivirusType:  "single",
		TotalPrice:     "1,500,000",
	}, "operator")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "Ali Rezaei", rec.CustomerName)
	assert.Equal(t, "1403/01/01", rec.ReceptionDate)
	assert.Equal(t, "1404/01/01", rec.WarrantyExpiration)
	assert.Equal(t, models.AntivirusSingle, rec.AntivirusType)
	assert.Equal(t, "1404/01/01", rec.AntivirusExpiration)
	assert.Equal(t, "1500000", rec.TotalPrice)

	created := auditOfType(t, e, models.AuditCreate)
	require.Len(t, created, 1)
	assert.Equal(t, "operator", created[0].User)
	assert.Contains(t, created[0].Details, rec.ID.String())
}

func TestCreateRecordClearsAntivirusForNone(t *testing.T) {
	e, _ := newTestEngine(t)
	rec, err := e.Records.Create(context.Background(), RecordInput{
		PhoneNumber:         "09121234567",
		AntivirusType:       "none",
		AntivirusExpiration: "1403/05/10",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.AntivirusNone, rec.AntivirusType)
	assert.Empty(t, rec.AntivirusExpiration)

	view := e.Records.View(rec)
	assert.Equal(t, StatusUnknown, view.Antivirus.Status)
}

func TestCreateRecordValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RecordInput
		field string
	}{
		{"no name or phone", RecordInput{Model: "X515"}, "customerName"},
		{"phone without digits", RecordInput{PhoneNumber: "0"}, "phoneNumber"},
		{"bad reception date", RecordInput{CustomerName: "Ali", ReceptionDate: "2024/03/20"}, "receptionDate"},
		{"bad warranty date", RecordInput{CustomerName: "Ali", WarrantyExpiration: "tomorrow"}, "warrantyExpiration"},
		{"unknown antivirus", RecordInput{CustomerName: "Ali", AntivirusType: "triple"}, "antivirusType"},
		{"bad price", RecordInput{CustomerName: "Ali", TotalPrice: "cheap"}, "totalPrice"},
		{"negative warranty", RecordInput{CustomerName: "Ali", WarrantyMonths: -1}, "warrantyMonths"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Records.Create(ctx, tt.in, "")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	recs, err := e.Store.Records().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, auditOfType(t, e, models.AuditCreate))
}

func TestUpdateRecordAppendsDescription(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{
		CustomerName:  "Sara",
		PhoneNumber:   "09351112233",
		ReceptionDate: "1402/05/10",
		Description:   "screen replaced",
	}, "")
	require.NoError(t, err)

	updated, err := e.Records.Update(ctx, rec.ID, RecordPatch{
		CustomerName: ptr("Sara Ahmadi"),
		Description:  ptr("battery replaced"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Sara Ahmadi", updated.CustomerName)
	assert.Equal(t, "1402/05/10", updated.ReceptionDate)
	assert.Equal(t, "screen replaced\nbattery replaced", updated.Description)
	assert.Len(t, auditOfType(t, e, models.AuditUpdate), 1)

	assert.Equal(t, "09351112233", updated.PhoneNumber)

	_, err = e.Records.Update(ctx, uuid.New(), RecordPatch{CustomerName: ptr("x")}, "")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUpdateRecordKeepsRenewedExpiry(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{
		CustomerName:       "Ali",
		PhoneNumber:        "09121234567",
		WarrantyMonths:     6,
		WarrantyExpiration: "1403/01/11",
		AntivirusType:      "single",
	}, "")
	require.NoError(t, err)
	_, err = e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetAntivirus, DurationMonths: 12})
	require.NoError(t, err)
	renewed, err := e.Records.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "1405/01/01", renewed.AntivirusExpiration)

	updated, err := e.Records.Update(ctx, rec.ID, RecordPatch{Model: ptr("X515")}, "")
	require.NoError(t, err)
	assert.Equal(t, "X515", updated.Model)
	assert.Equal(t, models.AntivirusSingle, updated.AntivirusType)
	assert.Equal(t, "1405/01/01", updated.AntivirusExpiration)
	assert.Equal(t, "1403/01/11", updated.WarrantyExpiration)
	assert.Equal(t, 6, updated.WarrantyMonths)

	updated, err = e.Records.Update(ctx, rec.ID, RecordPatch{WarrantyMonths: ptr(12)}, "")
	require.NoError(t, err)
	assert.Equal(t, "1404/01/01", updated.WarrantyExpiration)

	updated, err = e.Records.Update(ctx, rec.ID, RecordPatch{AntivirusType: ptr("none")}, "")
	require.NoError(t, err)
	assert.Equal(t, models.AntivirusNone, updated.AntivirusType)
	assert.Empty(t, updated.AntivirusExpiration)
}

func TestDeleteRecord(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali"}, "")
	require.NoError(t, err)
	require.NoError(t, e.Records.Delete(ctx, rec.ID, "operator"))

	_, err = e.Records.Get(ctx, rec.ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.ErrorAs(t, e.Records.Delete(ctx, rec.ID, ""), &nf)
	assert.Len(t, auditOfType(t, e, models.AuditDelete), 1)
}

func TestListRecordsQuery(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567", Model: "X515"}, "")
	require.NoError(t, err)
	_, err = e.Records.Create(ctx, RecordInput{CustomerName: "Sara", PhoneNumber: "09351112233", Model: "ThinkPad"}, "")
	require.NoError(t, err)

	all, err := e.Records.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byPhone, err := e.Records.List(ctx, "+98 912 123 4567")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Ali", byPhone[0].CustomerName)

	byModel, err := e.Records.List(ctx, "thinkpad")
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, "Sara", byModel[0].CustomerName)
}

func TestMostRecentFirst(t *testing.T) {
	older := models.ServiceRecord{ID: uuid.New(), ReceptionDate: "1402/05/10", CreatedAt: fixedNow}
	newer := models.ServiceRecord{ID: uuid.New(), ReceptionDate: "1403/01/01", CreatedAt: fixedNow.Add(-time.Hour)}
	broken := models.ServiceRecord{ID: uuid.New(), ReceptionDate: "not a date", CreatedAt: fixedNow.Add(time.Hour)}
	sameDayLater := models.ServiceRecord{ID: uuid.New(), ReceptionDate: "1403/01/01", CreatedAt: fixedNow}

	in := []models.ServiceRecord{broken, older, newer, sameDayLater}
	got := MostRecentFirst(in)

	ids := make([]uuid.UUID, len(got))
	for i := range got {
		ids[i] = got[i].ID
	}
	assert.Equal(t, []uuid.UUID{sameDayLater.ID, newer.ID, older.ID, broken.ID}, ids)
	assert.Equal(t, broken.ID, in[0].ID, "input must not be reordered")
}
