package handlers

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"khatma/internal/auth"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	AllowedOrigins []string
	TrustedProxies []string
}

// NewRouter wires every route of the service
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), RequestMetrics(h.Metrics))

	if len(opts.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/", h.HomeHandler)
	router.GET("/health", h.HealthHandler)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}
	router.POST("/telegram/webhook", h.TelegramWebhook)

	router.POST("/admin/login", h.Login)

	admin := router.Group("/admin")
	admin.Use(auth.AdminMiddleware(h.Auth.Tokens()))
	{
		admin.GET("/fridays", h.ListFridays)
		admin.GET("/fridays/current", h.CurrentFriday)
		admin.POST("/fridays", h.CreateFriday)
		admin.GET("/fridays/:number", h.GetFriday)
		admin.PATCH("/fridays/:number", h.UpdateFriday)
		admin.GET("/fridays/:number/readings", h.FridayReadings)
		admin.POST("/fridays/:number/readings/generate", h.GenerateReadings)
		admin.GET("/fridays/:number/stats", h.FridayStats)
		admin.GET("/fridays/:number/pending", h.FridayPending)

		admin.GET("/stats/fridays", h.AllFridaysStats)
		admin.GET("/stats/top", h.TopReaders)

		admin.GET("/readings", h.SearchReadings)
		admin.PATCH("/readings/:id/slots/:position", h.UpdateSlot)

		admin.GET("/persons", h.ListPersons)
		admin.POST("/persons", h.CreatePerson)
		admin.PATCH("/persons/:id", h.UpdatePerson)
		admin.DELETE("/persons/:id", h.DeletePerson)
		admin.PUT("/persons/:id/admin", h.SetAdmin)
		admin.GET("/analytics/:name", h.PersonAnalytics)

		admin.GET("/notifications", h.ListNotifications)
		admin.GET("/dispatch-runs", h.ListDispatchRuns)
		admin.POST("/dispatch", h.Dispatch)
		admin.POST("/broadcast", h.Broadcast)

		admin.GET("/settings/:key", h.GetSetting)
		admin.PUT("/settings/:key", h.SetSetting)
	}

	return router, nil
}
