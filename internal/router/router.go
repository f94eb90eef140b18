// Package router wires handlers and middleware into the HTTP surface.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "papertrade/internal/docs" // registers swagger docs
	"papertrade/internal/handlers"
	"papertrade/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Trade     *handlers.TradeHandler
	Portfolio *handlers.PortfolioHandler
	Snapshot  *handlers.PortfolioSnapshotHandler
	Stock     *handlers.StockHandler
	Market    *handlers.MarketHandler
	Explain   *handlers.ExplanationHandler
}

// Options carries the settings that shape the middleware chain.
type Options struct {
	CORSAllowedOrigins []string
	PipelineAPIKey     string
}

// New builds the gin engine with all routes mounted under /api/v1.
func New(opts Options, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogging())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS(opts.CORSAllowedOrigins))
	r.NoRoute(middleware.NotFound())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	stocks := v1.Group("/stocks")
	stocks.GET("", h.Stock.ListStocks)
	stocks.GET("/search", h.Stock.SearchStocks)
	stocks.GET("/:symbol", h.Stock.GetStock)
	stocks.GET("/:symbol/history", h.Stock.GetHistory)

	market := v1.Group("/market")
	market.GET("/overview", h.Market.GetOverview)
	market.GET("/top-movers", h.Market.GetTopMovers)
	market.GET("/status", h.Market.GetStatus)

	v1.GET("/leaderboard", h.Portfolio.GetLeaderboard)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware())

	me := protected.Group("/users/me")
	me.GET("", h.Auth.GetProfile)
	me.PUT("", h.Auth.UpdateProfile)
	me.GET("/portfolio", h.Portfolio.GetPortfolio)
	me.GET("/transactions", h.Portfolio.GetTransactions)
	me.GET("/rank", h.Portfolio.GetRank)
	me.GET("/snapshots", h.Snapshot.GetSnapshots)

	protected.POST("/trades", h.Trade.ExecuteTrade)
	protected.POST("/ai/explain", h.Explain.Explain)

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/stocks/refresh", h.Stock.RefreshStocks)
	pipeline.POST("/snapshots", h.Snapshot.ComputeSnapshots)

	return r
}
