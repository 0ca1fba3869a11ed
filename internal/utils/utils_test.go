package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestGormLoggerIgnoresSettingPolls(t *testing.T) {
	l := NewCustomGormLogger(logger.Discard, `FROM "setting" WHERE "setting"."key"`)
	assert.True(t, l.Ignored(`SELECT * FROM "setting" WHERE "setting"."key" = 'x' LIMIT 1`))
	assert.False(t, l.Ignored(`SELECT * FROM "person"`))
}

func TestGetRealClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.1", "X-Forwarded-For": "10.0.0.2"}, "10.0.0.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "10.0.0.2, 10.0.0.3"}, "10.0.0.2"},
		{"garbage falls back", map[string]string{"X-Real-IP": "nope"}, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealClientIP(c))
		})
	}
}
