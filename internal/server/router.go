package server

import (
	"time"

	"video-wizard/internal/i18n"
	"video-wizard/internal/wizard"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// MediaURL is the prefix under which a session's uploaded clips are served.
func MediaURL(sessionID string) string {
	return apiPrefix + "/sessions/" + sessionID + "/media/"
}

// New creates a new router with all routes configured.
func New(sessions *wizard.Sessions, translator *i18n.Translator, maxUploadBytes int64, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(ginLogger(logger))
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "sessions": sessions.Len()})
	})

	h := NewSessionHandler(sessions, translator, maxUploadBytes, logger)

	v1 := r.Group(apiPrefix)
	{
		v1.GET("/catalog", h.GetCatalog)
		v1.POST("/sessions", h.CreateSession)

		s := v1.Group("/sessions/:session_id")
		{
			s.GET("", h.GetSession)
			s.DELETE("", h.DeleteSession)

			s.POST("/clips", h.AddClips)
			s.DELETE("/clips/:clip_id", h.RemoveClip)
			s.POST("/clips/move", h.MoveClip)
			s.POST("/clips/arrange", h.AutoArrange)
			s.PUT("/selection", h.SelectClip)
			s.GET("/media/:clip_id", h.GetMedia)

			s.PUT("/step", h.SetStep)
			s.PUT("/script", h.SetScript)
			s.POST("/script/draft", h.DraftScript)

			s.PUT("/voice", h.SelectVoice)
			s.POST("/voice/preview", h.PreviewVoice)
			s.GET("/voice/preview.wav", h.GetPreviewAudio)

			s.PUT("/music", h.SelectMusic)
			s.POST("/captions", h.GenerateCaptions)

			s.POST("/export", h.StartExport)
			s.GET("/export/ws", h.WatchExport)
		}
	}

	return r
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept-Language, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
