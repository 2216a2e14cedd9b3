package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"machinery-backend/internal/metrics"
	"machinery-backend/internal/mw"
)

// RouterOptions configures the middleware chain.
type RouterOptions struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics
	// Limiter is nil to disable per-IP rate limiting.
	Limiter *mw.IPRateLimiter
	// CacheTTL bounds how long catalog listings are served from memory; zero means 5 minutes.
	CacheTTL time.Duration
}

// NewRouter creates and configures a new Gin router. Reads are public;
// every mutation requires a bearer token.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(opts.Log), mw.Metrics(opts.Metrics))

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	cacheStore := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	caching := mw.Cache(cacheStore, opts.CacheTTL)
	authed := mw.RequireAuth(h.svc.Identity)

	api := r.Group("/api")
	if opts.Limiter != nil {
		api.Use(mw.RateLimiter(opts.Limiter))
	}
	api.Use(mw.FlushOnWrite(cacheStore))
	{
		api.GET("/status", h.Status)
		api.POST("/auth/login", h.Login)
		api.GET("/auth/me", authed, h.Me)

		api.GET("/machines", h.ListMachines)
		api.GET("/machines/search", h.SearchMachines)
		api.GET("/machines/export", h.ExportMachines)
		api.GET("/machines/due", h.DueForMaintenance)
		api.GET("/machines/:id", h.GetMachine)
		api.GET("/machines/:id/history", h.MachineHistory)
		api.GET("/machines/:id/documents", h.ListDocuments)
		api.POST("/machines", authed, h.CreateMachine)
		api.PUT("/machines/:id", authed, h.UpdateMachine)
		api.DELETE("/machines/:id", authed, h.DeleteMachine)
		api.POST("/machines/:id/status", authed, h.ChangeMachineStatus)
		api.POST("/machines/:id/documents", authed, h.UploadDocument)
		api.GET("/documents/:id", h.DownloadDocument)

		api.GET("/categories", caching, h.ListCategories)
		api.POST("/categories", authed, h.CreateCategory)
		api.PATCH("/categories/:id", authed, h.SetCategoryActive)
		api.DELETE("/categories/:id", authed, h.DeleteCategory)
		api.GET("/suppliers", caching, h.ListSuppliers)
		api.POST("/suppliers", authed, h.CreateSupplier)
		api.PATCH("/suppliers/:id", authed, h.SetSupplierActive)
		api.DELETE("/suppliers/:id", authed, h.DeleteSupplier)

		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/active", h.ActiveAlerts)
		api.GET("/alerts/:id", h.GetAlert)
		api.POST("/alerts", authed, h.CreateAlert)
		api.POST("/alerts/:id/start", authed, h.StartAlert)
		api.POST("/alerts/:id/resolve", authed, h.ResolveAlert)
		api.POST("/alerts/:id/ignore", authed, h.IgnoreAlert)

		api.GET("/maintenance", h.ListMaintenance)
		api.GET("/maintenance/:id", h.GetMaintenance)
		api.POST("/maintenance", authed, h.ScheduleMaintenance)
		api.POST("/maintenance/:id/start", authed, h.StartMaintenance)
		api.POST("/maintenance/:id/complete", authed, h.CompleteMaintenance)
		api.POST("/maintenance/:id/cancel", authed, h.CancelMaintenance)

		api.GET("/dashboard/summary", h.DashboardSummary)
		api.GET("/dashboard/maintenance", h.DashboardMaintenance)
		api.GET("/metrics/performance", h.DashboardPerformance)

		api.GET("/users", authed, h.ListUsers)
		api.POST("/users", authed, h.CreateUser)
		api.GET("/audit/:entity/:id", authed, mw.RequireAdmin(), h.AuditTrail)

		api.GET("/subscriptions", authed, h.GetSubscription)
		api.PUT("/subscriptions", authed, h.PutSubscription)
		api.DELETE("/subscriptions", authed, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
