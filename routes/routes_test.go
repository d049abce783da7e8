package routes

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"repairdesk-backend/config"
	"repairdesk-backend/repository"
	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, utils.RegisterValidators())

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	opts := services.DefaultOptions()
	opts.Location = time.FixedZone("IRST", 3*3600+1800)
	opts.Now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, opts.Location) }
	engine := services.NewEngine(repository.NewMemoryStore(), nil, opts, zap.NewNop())

	settings := config.Settings{
		CORSOrigins:       []string{"http://localhost:3000"},
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	}
	return &testServer{t: t, router: SetupRouter(engine, settings)}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// doStream sends body without a known length, the way a chunked client does.
func (s *testServer) doStream(method, path string, body io.Reader) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login() {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/login", gin.H{"username": "admin", "password": "s3cret"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	s.token = resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/auth/login", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/records", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.login()
	w = s.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode(t, w)["username"])
}

func TestRecordLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/api/records", gin.H{"customerName": "Ali", "receptionDate": "2024-03-20"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/records", gin.H{
		"customerName":       "Ali",
		"phoneNumber":        "09121234567",
		"model":              "X515",
		"warrantyExpiration": "1403/01/11",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "expiring_soon", created["warranty"].(map[string]interface{})["status"])

	w = s.do(http.MethodPost, "/api/records/"+id+"/renew", gin.H{"target": "warranty", "durationMonths": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/records/"+id+"/renew", gin.H{"target": "warranty", "durationMonths": 6})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	event := decode(t, w)["event"].(map[string]interface{})
	assert.Equal(t, "1403/07/11", event["newExpiry"])

	w = s.do(http.MethodGet, "/api/records/"+id+"/renewals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	w = s.do(http.MethodGet, "/api/customers/lookup?phone=%2B989121234567", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ali", decode(t, w)["name"])

	w = s.do(http.MethodGet, "/api/records/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/records/6f1c2b9e-3f0a-4c55-9d8e-2a7b1c0d4e5f", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/records/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/records/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportAndSettings(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/api/records", gin.H{"customerName": "Sara", "phoneNumber": "09351112233"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/export/records?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "records_")
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,customer_name,phone_number"))

	w = s.do(http.MethodGet, "/api/export/records?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode(t, w)
	assert.EqualValues(t, 30, settings["expiringSoonDays"])
	assert.Equal(t, "1403/01/01", settings["today"])

	w = s.do(http.MethodPut, "/api/settings/notifications", gin.H{"notifyOnRenewal": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["notifyOnRenewal"])

	w = s.do(http.MethodPut, "/api/settings/templates", gin.H{"warranty": "W"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/admin/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var audit []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &audit))
	require.Len(t, audit, 1)
	assert.Equal(t, "create", audit[0]["type"])
	assert.Equal(t, "admin", audit[0]["user"])
}

func TestSendRemindersBodyIsOptional(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/api/records", gin.H{
		"customerName":       "Ali",
		"phoneNumber":        "09121234567",
		"warrantyExpiration": "1403/01/11",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/reminders/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["sent"])

	w = s.doStream(http.MethodPost, "/api/reminders/send", io.MultiReader())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/reminders/send", gin.H{"days": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode(t, w)["sent"])

	w = s.do(http.MethodPost, "/api/reminders/send", gin.H{"days": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doStream(http.MethodPost, "/api/reminders/send", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/notifications/retry", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode(t, w)["attempted"])
}

func TestNotificationByID(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/api/records", gin.H{"customerName": "Ali", "phoneNumber": "09121234567"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = s.do(http.MethodPost, "/api/records/"+id+"/notify", gin.H{"message": "your laptop is ready"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entryID := decode(t, w)["id"].(string)

	w = s.do(http.MethodGet, "/api/notifications/"+entryID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entry := decode(t, w)
	assert.Equal(t, "your laptop is ready", entry["messageContent"])
	assert.Equal(t, "sent", entry["status"])

	w = s.do(http.MethodPost, "/api/notifications/"+entryID+"/retry", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/notifications/6f1c2b9e-3f0a-4c55-9d8e-2a7b1c0d4e5f", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, "/api/notifications/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRecordKeepsOmittedFields(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/api/records", gin.H{
		"customerName":        "Ali",
		"phoneNumber":         "09121234567",
		"antivirusType":       "double",
		"antivirusExpiration": "1404/06/01",
		"warrantyExpiration":  "1404/01/01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = s.do(http.MethodPut, "/api/records/"+id, gin.H{"model": "ThinkPad"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decode(t, w)
	assert.Equal(t, "ThinkPad", rec["model"])
	assert.Equal(t, "double", rec["antivirusType"])
	assert.Equal(t, "1404/06/01", rec["antivirusExpiration"])
	assert.Equal(t, "1404/01/01", rec["warrantyExpiration"])
}

func TestRepairLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.do(http.MethodPost, "/api/repairs", gin.H{"customerName": "Sara", "status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/repairs", gin.H{
		"customerName": "Sara",
		"phoneNumber":  "09122222222",
		"deviceModel":  "iPhone 13",
		"issue":        "cracked screen",
		"serviceDate":  "1403/01/01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	code := created["trackingCode"].(string)
	assert.Equal(t, "in_progress", created["status"])
	assert.Equal(t, "1404/01/01", created["warrantyExpiration"])

	w = s.do(http.MethodGet, "/api/repairs/track/"+strings.ToLower(code), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, decode(t, w)["id"])

	w = s.do(http.MethodPut, "/api/repairs/"+id, gin.H{"status": "completed", "cost": "4,500,000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "completed", updated["status"])
	assert.Equal(t, "1403/01/01", updated["completedDate"])
	assert.Equal(t, "iPhone 13", updated["deviceModel"])

	w = s.do(http.MethodGet, "/api/repairs?status=open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var open []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &open))
	assert.Empty(t, open)

	w = s.do(http.MethodGet, "/api/customers/lookup?phone=%2B989122222222", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	customer := decode(t, w)
	assert.Equal(t, "Sara", customer["name"])
	assert.EqualValues(t, 1, customer["repairsCount"])
	assert.EqualValues(t, 0, customer["itemsBought"])

	w = s.do(http.MethodGet, "/api/export/repairs?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,tracking_code,customer_name"))

	w = s.do(http.MethodDelete, "/api/repairs/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/repairs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, "/api/repairs/track/RP-NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
