package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI records requests and answers like the Bot API
type fakeBotAPI struct {
	mu       sync.Mutex
	methods  []string
	forms    []map[string]string
	response func(method string) (int, string)
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseMultipartForm(1 << 20)
	_ = r.ParseForm()
	form := make(map[string]string)
	for k, v := range r.Form {
		form[k] = v[0]
	}
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.forms = append(f.forms, form)
	f.mu.Unlock()

	status, body := http.StatusOK, `{"ok":true,"result":true}`
	if method == "sendMessage" {
		body = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`
	}
	if f.response != nil {
		status, body = f.response(method)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newFake(t *testing.T) (*fakeBotAPI, *Client) {
	t.Helper()
	fake := &fakeBotAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, NewClient("TOKEN", srv.URL+"/bot%s/%s", 2*time.Second)
}

func TestSendMessage(t *testing.T) {
	fake, c := newFake(t)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Done", "mark_done")),
	)
	err := c.Send(context.Background(), "42", "<b>hi</b>", &kb)
	require.NoError(t, err)

	require.Len(t, fake.methods, 1)
	assert.Equal(t, "sendMessage", fake.methods[0])
	form := fake.forms[0]
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "<b>hi</b>", form["text"])
	assert.Equal(t, "HTML", form["parse_mode"])

	var markup tgbotapi.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(form["reply_markup"]), &markup))
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "mark_done", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestSendRejectedByTelegram(t *testing.T) {
	fake, c := newFake(t)
	fake.response = func(string) (int, string) {
		return http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	}

	err := c.Send(context.Background(), "42", "hi", nil)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.NotErrorIs(t, err, ErrChannelUnavailable)
}

func TestSendInvalidToken(t *testing.T) {
	fake, c := newFake(t)
	fake.response = func(string) (int, string) {
		return http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`
	}

	err := c.Send(context.Background(), "42", "hi", nil)
	assert.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestSendChannelDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/bot%s/%s"
	srv.Close()

	c := NewClient("TOKEN", endpoint, time.Second)
	err := c.Send(context.Background(), "42", "hi", nil)
	assert.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestSendInvalidChatID(t *testing.T) {
	fake, c := newFake(t)
	err := c.Send(context.Background(), "not-a-number", "hi", nil)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Empty(t, fake.methods)
}

func TestAnswerCallbackIgnoresErrors(t *testing.T) {
	fake, c := newFake(t)
	fake.response = func(string) (int, string) {
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"query is too old"}`
	}

	c.AnswerCallback(context.Background(), "cb1")
	c.AnswerCallback(context.Background(), "")

	require.Len(t, fake.methods, 1)
	assert.Equal(t, "answerCallbackQuery", fake.methods[0])
	assert.Equal(t, "cb1", fake.forms[0]["callback_query_id"])
}

func TestSetWebhook(t *testing.T) {
	fake, c := newFake(t)

	require.NoError(t, c.SetWebhook(context.Background(), "https://example.com/telegram/webhook", "s3cret"))
	require.Len(t, fake.forms, 1)
	assert.Equal(t, "setWebhook", fake.methods[0])
	assert.Equal(t, "https://example.com/telegram/webhook", fake.forms[0]["url"])
	assert.Equal(t, "s3cret", fake.forms[0]["secret_token"])

	assert.Error(t, c.SetWebhook(context.Background(), "http://insecure", ""))
}

func TestHealth(t *testing.T) {
	now := time.Date(2025, 11, 21, 8, 0, 0, 0, time.UTC)
	h := newHealthAt(func() time.Time { return now })

	assert.True(t, h.Status().Healthy)

	for i := 0; i < 5; i++ {
		h.RecordError(assert.AnError)
	}
	s := h.Status()
	assert.False(t, s.Healthy)
	assert.Equal(t, 5, s.ConsecutiveErrors)
	assert.Equal(t, assert.AnError.Error(), s.LastError)

	h.RecordUpdate()
	assert.True(t, h.Status().Healthy)

	now = now.Add(6 * time.Minute)
	assert.False(t, h.Status().Healthy)
}
