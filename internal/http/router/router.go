package router

import (
	"github.com/gin-gonic/gin"

	"maestro.app/gateway/core/config"
	"maestro.app/gateway/internal/http/handler"
	"maestro.app/gateway/internal/ws"
)

type RouterConfig struct {
	Spotify config.SpotifyConfig
}

// SetupRoutes mounts the gateway surface: health, the websocket endpoint
// and, when configured, the Spotify relay.
func SetupRoutes(router *gin.Engine, wsHandler *ws.Handler, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/ws", wsHandler.Serve)

	if cfg.Spotify.Enabled() {
		spotifyHandler := handler.NewSpotifyHandler(cfg.Spotify)
		spotify := router.Group("/api/spotify")
		{
			spotify.GET("/auth-url", spotifyHandler.AuthURL)
			spotify.POST("/token", spotifyHandler.Token)
			spotify.POST("/refresh", spotifyHandler.Refresh)
			spotify.GET("/search", spotifyHandler.Search)
		}
	}
}
