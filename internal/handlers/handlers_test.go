package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm/logger"

	"khatma/internal/analytics"
	"khatma/internal/auth"
	"khatma/internal/config"
	"khatma/internal/database"
	"khatma/internal/metrics"
	"khatma/internal/models"
	"khatma/internal/rotation"
	"khatma/internal/services"
	"khatma/internal/storage/gormstore"
	"khatma/internal/telegram"
)

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessenger) Send(_ context.Context, chatID, text string, _ *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, chatID)
	return nil
}

func (f *fakeMessenger) AnswerCallback(context.Context, string) {}

type recordingBot struct {
	updates []tgbotapi.Update
}

func (b *recordingBot) HandleUpdate(_ context.Context, u tgbotapi.Update) {
	b.updates = append(b.updates, u)
}

type testServer struct {
	router *gin.Engine
	store  *gormstore.Store
	msg    *fakeMessenger
	bot    *recordingBot
	token  string
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "handlers.db"),
	}, database.Options{MaxRetries: 1, LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	store := gormstore.New(db)

	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	engine := analytics.NewEngine(store, time.UTC).WithClock(func() time.Time { return now })
	msg := &fakeMessenger{}
	m := metrics.New()

	tokens, err := auth.NewTokens("secret", time.Hour)
	require.NoError(t, err)
	authn := auth.NewAuthenticator("client", []string{"admin@example.com"}, tokens).
		WithValidator(func(_ context.Context, tok, aud string) (*idtoken.Payload, error) {
			return &idtoken.Payload{Subject: "sub", Audience: aud, Claims: map[string]interface{}{
				"email":          tok,
				"email_verified": true,
				"name":           "Admin",
			}}, nil
		})
	token, _, err := tokens.Generate("admin@example.com", "Admin")
	require.NoError(t, err)

	bot := &recordingBot{}
	h := &Handler{
		Store:         store,
		Engine:        engine,
		Dispatcher:    services.NewDispatcher(store, msg, m, services.DispatcherConfig{}),
		Planner:       services.NewPlanner(store, rotation.Default()),
		Bot:           bot,
		Auth:          authn,
		Health:        telegram.NewHealth(),
		Metrics:       m,
		WebhookSecret: "hook-secret",
	}

	require.NoError(t, store.CreateFridays(context.Background(), []models.Friday{
		{FridayNumber: 181, Date: time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)},
		{FridayNumber: 182, Date: time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC)},
	}))

	router, err := NewRouter(h, RouterOptions{TrustedProxies: []string{"127.0.0.1"}})
	require.NoError(t, err)
	return &testServer{router: router, store: store, msg: msg, bot: bot, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if strings.HasPrefix(path, "/admin/") && path != "/admin/login" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) person(t *testing.T, name string, group int, chatID string) models.Person {
	t.Helper()
	w := s.do(t, http.MethodPost, "/admin/persons", gin.H{"name": name, "group_number": group})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[models.Person](t, w)
	if chatID != "" {
		require.NoError(t, s.store.LinkChat(context.Background(), p.ID, chatID, nil))
	}
	return p
}

func TestHealthAndHome(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterRejectsBadTrustedProxy(t *testing.T) {
	_, err := NewRouter(&Handler{}, RouterOptions{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/persons", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/persons", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin(t *testing.T) {
	s := newServer(t)

	// the fake validator reports the id token itself as the e-mail
	w := s.do(t, http.MethodPost, "/admin/login", gin.H{"id_token": "admin@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "admin@example.com", body["email"])

	w = s.do(t, http.MethodPost, "/admin/login", gin.H{"id_token": "someone@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/admin/login", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonLifecycle(t *testing.T) {
	s := newServer(t)
	ahmed := s.person(t, "Ahmed", 1, "")
	s.person(t, "Sara", 1, "")

	w := s.do(t, http.MethodPost, "/admin/fridays/181/readings/generate", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	name := "Ahmad"
	w = s.do(t, http.MethodPatch, "/admin/persons/"+itoa(ahmed.ID), gin.H{"name": name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ahmad", decode[models.Person](t, w).Name)

	w = s.do(t, http.MethodPatch, "/admin/persons/"+itoa(ahmed.ID), gin.H{"name": "Sara"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/admin/readings?person=Ahmad", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Reading](t, w), 1)

	w = s.do(t, http.MethodGet, "/admin/readings?person=Ahmed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Reading](t, w))

	w = s.do(t, http.MethodPut, "/admin/persons/"+itoa(ahmed.ID)+"/admin", gin.H{"is_admin": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Person](t, w).IsAdmin)

	w = s.do(t, http.MethodDelete, "/admin/persons/"+itoa(ahmed.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/persons/"+itoa(ahmed.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/admin/readings?q=Sa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Reading](t, w))

	w = s.do(t, http.MethodPatch, "/admin/persons/abc", gin.H{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFridayRoutes(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/admin/fridays", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Fridays []models.Friday `json:"fridays"`
		Current int             `json:"current"`
	}](t, w)
	assert.Len(t, list.Fridays, 2)
	assert.Equal(t, 181, list.Current)

	w = s.do(t, http.MethodGet, "/admin/fridays/current", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/admin/fridays", gin.H{"friday_number": 183, "date": "05/12/2025"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/admin/fridays", gin.H{"friday_number": 183, "date": "2025-12-05"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/admin/fridays", gin.H{"friday_number": 183, "date": "2025-12-05"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, "/admin/fridays/183", gin.H{"date": "2025-12-06"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-12-06", decode[models.Friday](t, w).Date.Format(models.DateOnly))

	w = s.do(t, http.MethodGet, "/admin/fridays/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlotUpdateAndStats(t *testing.T) {
	s := newServer(t)
	s.person(t, "Ahmed", 1, "")
	s.person(t, "Sara", 1, "")

	w := s.do(t, http.MethodPost, "/admin/fridays/181/readings/generate", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/admin/fridays/181/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	readings := decode[[]models.Reading](t, w)
	require.Len(t, readings, 1)
	id := itoa(readings[0].ID)

	w = s.do(t, http.MethodPatch, "/admin/readings/"+id+"/slots/4", gin.H{"done": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/admin/readings/"+id+"/slots/1", gin.H{"done": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Reading](t, w).Person1Status)

	w = s.do(t, http.MethodGet, "/admin/fridays/181/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[analytics.FridayStats](t, w)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50, stats.Percentage)

	w = s.do(t, http.MethodGet, "/admin/stats/top?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	top := decode[[]analytics.Reader](t, w)
	require.Len(t, top, 1)
	assert.Equal(t, "Ahmed", top[0].Name)

	w = s.do(t, http.MethodGet, "/admin/analytics/Ahmed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[analytics.Summary](t, w)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 181, summary.CurrentFriday)
}

func TestDispatchDefaultsToCurrentFriday(t *testing.T) {
	s := newServer(t)
	s.person(t, "Ahmed", 1, "100")
	s.person(t, "Sara", 1, "")

	w := s.do(t, http.MethodPost, "/admin/fridays/181/readings/generate", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/admin/fridays/181/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

	w = s.do(t, http.MethodPost, "/admin/dispatch", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[services.DispatchSummary](t, w)
	assert.Equal(t, 181, summary.FridayNumber)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []string{"100"}, s.msg.sent)

	w = s.do(t, http.MethodGet, "/admin/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Notification](t, w), 1)

	w = s.do(t, http.MethodGet, "/admin/dispatch-runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.DispatchRun](t, w), 1)
}

func TestBroadcast(t *testing.T) {
	s := newServer(t)
	s.person(t, "Ahmed", 1, "100")
	admin := s.person(t, "Sara", 2, "200")
	require.NoError(t, s.store.SetAdmin(context.Background(), admin.ID, true))

	w := s.do(t, http.MethodPost, "/admin/broadcast", gin.H{"message": "hello", "admins_only": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"200"}, s.msg.sent)

	w = s.do(t, http.MethodPost, "/admin/broadcast", gin.H{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/admin/settings/"+models.SettingAutoReminders, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/admin/settings/"+models.SettingAutoReminders, gin.H{"value": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/admin/settings/"+models.SettingCurrentFriday, gin.H{"value": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/admin/settings/"+models.SettingAutoReminders, gin.H{"value": "true"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/admin/settings/"+models.SettingAutoReminders, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", decode[map[string]string](t, w)["value"])
}

func TestTelegramWebhook(t *testing.T) {
	s := newServer(t)
	body := `{"update_id": 7, "message": {"message_id": 1, "chat": {"id": 5}, "text": "/start"}}`

	send := func(secret, payload string) int {
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set(secretHeader, secret)
		}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("", body))
	assert.Equal(t, http.StatusUnauthorized, send("wrong", body))
	assert.Empty(t, s.bot.updates)

	assert.Equal(t, http.StatusOK, send("hook-secret", body))
	require.Len(t, s.bot.updates, 1)
	assert.Equal(t, 7, s.bot.updates[0].UpdateID)
	assert.Equal(t, "/start", s.bot.updates[0].Message.Text)

	assert.Equal(t, http.StatusOK, send("hook-secret", "{not json"))
	assert.Len(t, s.bot.updates, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodGet, "/health", nil)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `khatma_http_requests_total{code="200",route="/health"} 1`)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
