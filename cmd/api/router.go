package main

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/members-portal/internal/auth"
	"github.com/yourusername/members-portal/internal/config"
	"github.com/yourusername/members-portal/internal/logging"
	"github.com/yourusername/members-portal/internal/session"
	"github.com/yourusername/members-portal/internal/web"
)

// newRouter はミドルウェアとルーティングを設定した gin.Engine を返します。
func newRouter(cfg *config.Config, logger *zap.Logger, store sessions.Store, flow *auth.Flow, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = splitOrigins(cfg.CORSAllowedOrigins)
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.Use(sessions.Sessions(session.CookieName, store))

	setupRoutes(router, cfg, flow, gatherer)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "members-portal",
	})
}

// setupRoutes は API・ページ・運用系のルーティングを行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, flow *auth.Flow, gatherer prometheus.Gatherer) {
	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	h := auth.NewHandler(flow)
	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", h.Register)
			authRoutes.POST("/login", h.Login)
			authRoutes.POST("/logout", h.Logout)
			authRoutes.GET("/session", h.Session)
		}

		api.GET("/members", auth.RequireLogin(flow), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"username": auth.CurrentUser(c)})
		})
	}

	web.NewPages(flow, cfg.StaticDir).Register(router)
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
