// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alt-text-ai-api/internal/config"
	"alt-text-ai-api/internal/interfaces/http/handler"
	"alt-text-ai-api/internal/interfaces/http/middleware"
)

// Handlers 路由使用的处理器集合
type Handlers struct {
	Health   *handler.HealthHandler
	Settings *handler.SettingsHandler
	Notices  *handler.NoticeHandler
	Hooks    *handler.HookHandler
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// New 创建路由器
// notices 为后台提示来源，limiter 为 nil 时不限流
func New(cfg *config.Config, h Handlers, notices middleware.NoticeSource, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Server.HTTP.MaxUploadBytes

	r := &Router{
		engine: engine,
		cfg:    cfg,
	}

	r.setupMiddleware()
	r.setupRoutes(h, notices, limiter)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(h Handlers, notices middleware.NoticeSource, limiter middleware.RateLimiter) {
	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	jwtCfg := r.cfg.Security.JWT
	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
	}, limiter)

	// 后台路由组：宿主签发的管理员 Token
	admin := r.engine.Group("/admin",
		middleware.Auth(middleware.AuthConfig{
			Secret:  jwtCfg.Secret,
			Issuer:  jwtCfg.Issuer,
			Enabled: jwtCfg.Enabled,
		}),
		middleware.RequireRole(jwtCfg.Enabled, jwtCfg.AdminRole),
		rateLimit,
		middleware.AdminNotice(notices),
	)
	RegisterAdminRoutes(admin, h)

	// 宿主 webhook 路由组
	v1 := r.engine.Group("/v1", rateLimit)
	RegisterHookRoutes(v1, h, r.cfg.Hooks.Secret)
}
