package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/erp/exchange/docs"
	"github.com/erp/exchange/internal/interfaces/http/handler"
)

// DefaultExchangePath is where the ERP posts to when none is configured.
const DefaultExchangePath = "/1c-exchange"

// ExchangeRoutes mounts the exchange endpoint at path for GET and POST,
// behind mw (typically Basic auth and the body limit).
func ExchangeRoutes(path string, h *handler.ExchangeHandler, mw ...gin.HandlerFunc) *DomainGroup {
	if path == "" {
		path = DefaultExchangePath
	}
	return NewDomainGroup("exchange", path).
		Use(mw...).
		GET("", h.Handle).
		POST("", h.Handle)
}

// HealthRoutes mounts the liveness check at /health.
func HealthRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("health", "/health").GET("", h.Health)
}

// SystemRoutes mounts build info and the exchange history under /system,
// behind mw. The API documentation is served from /system/docs, guarded
// additionally by docs when it is not nil.
func SystemRoutes(h *handler.SystemHandler, docs gin.HandlerFunc, mw ...gin.HandlerFunc) *DomainGroup {
	system := NewDomainGroup("system", "/system").
		Use(mw...).
		GET("/info", h.GetSystemInfo).
		GET("/history", h.History)

	docsGroup := system.Group("docs", "/docs")
	if docs != nil {
		docsGroup.Use(docs)
	}
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return system
}
