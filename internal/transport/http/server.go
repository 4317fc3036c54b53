package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/config"
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/notify"
)

// NewServer builds the HTTP server: health, WebSocket endpoint, and the
// administrative REST surface.
func NewServer(hub *core.Hub, registry *core.Registry, rooms *core.RoomStore, notifier *notify.Manager, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/healthz", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	admin := NewAdminHandlers(registry, rooms, notifier, logger)
	api := router.Group("/api")
	{
		api.GET("/rooms", admin.ListRooms)
		api.GET("/rooms/:room", admin.RoomDetail)
		api.POST("/notifications", admin.CreateNotification)
		api.POST("/notifications/:id/read", admin.MarkNotificationRead)
		api.GET("/users/:user/notifications", admin.ListNotifications)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// LoggerMiddleware logs each HTTP request after it completes.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
