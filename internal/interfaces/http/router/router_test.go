package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/exchange/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.RegisterRoot(NewDomainGroup("root", "/root").POST("", func(c *gin.Context) {
		c.String(http.StatusOK, "root")
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/root", nil))
	assert.Equal(t, "root", w.Body.String())
}

func TestDomainGroupMiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()
	var order []string

	group := NewDomainGroup("outer", "/outer").Use(func(c *gin.Context) {
		order = append(order, "mw")
		c.Next()
	})
	group.Group("inner", "/inner").GET("/x", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusNoContent)
	})
	NewRouter(engine).RegisterRoot(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outer/inner/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"mw", "handler"}, order)
	assert.Equal(t, "outer", group.Name())
	assert.Equal(t, "/outer", group.Prefix())
}

func TestExchangeRoutes_DefaultPath(t *testing.T) {
	engine := gin.New()
	h := handler.NewExchangeHandler(nil)
	var hits int
	NewRouter(engine).RegisterRoot(ExchangeRoutes("", h, func(c *gin.Context) {
		hits++
		c.Next()
	})).Setup()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := httptest.NewRecorder()
		var body io.Reader
		if method == http.MethodPost {
			body = strings.NewReader("x")
		}
		engine.ServeHTTP(w, httptest.NewRequest(method, DefaultExchangePath+"?type=nope&mode=init", body))
		assert.Equal(t, "failure\nUnknown exchange type", w.Body.String())
	}
	assert.Equal(t, 2, hits)
}

func TestSystemRoutes(t *testing.T) {
	engine := gin.New()
	h := handler.NewSystemHandler("cml-exchange", "dev", nil, nil)
	NewRouter(engine).RegisterRoot(HealthRoutes(h)).Register(SystemRoutes(h, nil)).Setup()

	for _, path := range []string{"/health", "/api/v1/system/info", "/api/v1/system/history", "/api/v1/system/docs/index.html"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/docs/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/system/history")
}

func TestSystemRoutes_DocsGuard(t *testing.T) {
	engine := gin.New()
	h := handler.NewSystemHandler("cml-exchange", "dev", nil, nil)
	guard := func(c *gin.Context) { c.AbortWithStatus(http.StatusNotFound) }
	NewRouter(engine).Register(SystemRoutes(h, guard)).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterSetup_LogsMountedGroups(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := handler.NewSystemHandler("cml-exchange", "dev", nil, nil)

	NewRouter(gin.New(), WithLogger(zap.New(core))).
		RegisterRoot(HealthRoutes(h)).
		Register(SystemRoutes(h, nil)).
		Setup()

	entries := logs.FilterMessage("Routes mounted").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "health", entries[0].ContextMap()["group"])
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
	assert.Equal(t, "system", entries[1].ContextMap()["group"])
	assert.Equal(t, "/api/v1/system", entries[1].ContextMap()["path"])
	assert.Equal(t, int64(3), entries[1].ContextMap()["routes"])
}
