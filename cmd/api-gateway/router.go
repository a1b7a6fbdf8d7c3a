package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lexcal-api/internal/middleware"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/internal/service"
	"github.com/noah-isme/lexcal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lexcal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lexcal-api/pkg/middleware/requestid"
)

type routerDeps struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         internalmiddleware.TokenValidator

	Events    *handler.EventHandler
	Slots     *handler.SlotHandler
	Conflicts *handler.ConflictHandler
	Exports   *handler.ExportHandler
	Ops       *handler.MetricsHandler
}

func newRouter(deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(deps.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.Metrics, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", deps.Ops.Health)
	r.GET("/ready", deps.Ops.Ready)
	r.GET("/metrics", deps.Ops.Prometheus)
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.APIPrefix)
	// subscription clients cannot send bearer tokens; the path token is signed
	api.GET("/feeds/:token", deps.Exports.Feed)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(deps.Tokens))

	events := secured.Group("/events")
	events.GET("", deps.Events.List)
	events.POST("", deps.Events.Create)
	events.GET("/suggest-times", deps.Slots.SuggestTimes)
	events.GET("/:id", deps.Events.Get)
	events.PATCH("/:id", deps.Events.Update)
	events.DELETE("/:id", deps.Events.Delete)
	events.POST("/:id/resolve", deps.Events.Resolve)
	events.GET("/:id/children", deps.Events.Children)
	events.GET("/:id/alternatives", deps.Slots.Alternatives)

	secured.GET("/conflicts", deps.Conflicts.List)
	secured.POST("/conflicts/scan", deps.Conflicts.Scan)

	secured.GET("/exports/agenda", deps.Exports.Export)
	secured.POST("/feeds/token", deps.Exports.FeedToken)
	secured.POST("/imports/ics", deps.Exports.Import)

	admin := secured.Group("/admin")
	admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.POST("/conflicts/rescan", deps.Conflicts.Rescan)

	return r
}
