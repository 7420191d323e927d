package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appexchange "github.com/erp/exchange/internal/application/exchange"
	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/domain/shared"
	"github.com/erp/exchange/internal/infrastructure/logger"
	"github.com/erp/exchange/internal/interfaces/http/dto"
	"github.com/erp/exchange/internal/interfaces/http/middleware"
)

// DefaultCookieName is the cookie 1C sends the session token back in.
const DefaultCookieName = "PHPSESSID"

const (
	responseSuccess = "success"
	responseFailure = "failure"
)

// ExchangeService is the exchange protocol as seen by the HTTP layer.
type ExchangeService interface {
	Authenticate(ctx context.Context, creds appexchange.Credentials, kind exchange.ExchangeKind) (*appexchange.AuthResult, error)
	Validate(ctx context.Context, token string, kind exchange.ExchangeKind) (*exchange.ExchangeSession, error)
	Initialize(ctx context.Context, session *exchange.ExchangeSession) (appexchange.InitParams, error)
	ReceiveChunk(ctx context.Context, session *exchange.ExchangeSession, filename string, body io.Reader) (*appexchange.ChunkResult, error)
	Commit(ctx context.Context, session *exchange.ExchangeSession, filename string) (*appexchange.CommitResult, error)
	Query(ctx context.Context, session *exchange.ExchangeSession) ([]byte, error)
	ConfirmExported(ctx context.Context, session *exchange.ExchangeSession) (int, error)
}

// UploadRecorder counts received upload bytes.
type UploadRecorder interface {
	RecordUpload(ctx context.Context, kind string, bytes int64)
}

// ExchangeHandler serves the 1C exchange endpoint. Every answer is plain
// text: "success" or "failure" on the first line, details after it.
type ExchangeHandler struct {
	service    ExchangeService
	cookieName string
	uploads    UploadRecorder
}

// ExchangeHandlerOption configures an ExchangeHandler
type ExchangeHandlerOption func(*ExchangeHandler)

// WithCookieName sets the session cookie name announced on checkauth
func WithCookieName(name string) ExchangeHandlerOption {
	return func(h *ExchangeHandler) {
		if name != "" {
			h.cookieName = name
		}
	}
}

// WithUploadRecorder records received chunk sizes
func WithUploadRecorder(r UploadRecorder) ExchangeHandlerOption {
	return func(h *ExchangeHandler) {
		h.uploads = r
	}
}

// NewExchangeHandler creates a new ExchangeHandler
func NewExchangeHandler(service ExchangeService, opts ...ExchangeHandlerOption) *ExchangeHandler {
	h := &ExchangeHandler{
		service:    service,
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle dispatches ?type=...&mode=... to the protocol step.
func (h *ExchangeHandler) Handle(c *gin.Context) {
	var q dto.ExchangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.failure(c, queryError(q, err))
		return
	}

	log := logger.GetGinLogger(c)
	log.Debug("Exchange request", zap.String("type", q.Type), zap.String("mode", q.Mode))

	kind := q.Kind()
	mode := q.ExchangeMode()
	if !modeAllowed(kind, mode) {
		h.failure(c, unknownMode(kind))
		return
	}
	if mode == exchange.ModeCheckAuth {
		h.checkAuth(c, kind)
		return
	}

	ctx := c.Request.Context()
	session, err := h.service.Validate(ctx, h.token(c), kind)
	if err != nil {
		h.failure(c, err)
		return
	}

	switch mode {
	case exchange.ModeInit:
		h.init(c, session)
	case exchange.ModeFile:
		h.file(c, session, q.Filename)
	case exchange.ModeImport:
		h.importFile(c, session, q.Filename)
	case exchange.ModeQuery:
		h.query(c, session)
	case exchange.ModeSuccess:
		h.confirm(c, session)
	}
}

func (h *ExchangeHandler) checkAuth(c *gin.Context, kind exchange.ExchangeKind) {
	user, pass, _ := c.Request.BasicAuth()
	res, err := h.service.Authenticate(c.Request.Context(), appexchange.Credentials{Username: user, Password: pass}, kind)
	if err != nil {
		h.failure(c, err)
		return
	}
	c.String(http.StatusOK, "%s\n%s\n%s", responseSuccess, h.cookieName, res.Token)
}

func (h *ExchangeHandler) init(c *gin.Context, session *exchange.ExchangeSession) {
	params, err := h.service.Initialize(c.Request.Context(), session)
	if err != nil {
		h.failure(c, err)
		return
	}
	zip := "no"
	if params.Zip {
		zip = "yes"
	}
	c.String(http.StatusOK, "zip=%s\nfile_limit=%d\n", zip, params.FileLimit)
}

func (h *ExchangeHandler) file(c *gin.Context, session *exchange.ExchangeSession, filename string) {
	res, err := h.service.ReceiveChunk(c.Request.Context(), session, filename, c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(err)
			c.String(http.StatusRequestEntityTooLarge, "%s\n%s", responseFailure, middleware.ErrBodyTooLarge.Message)
			return
		}
		h.failure(c, err)
		return
	}
	if h.uploads != nil {
		h.uploads.RecordUpload(c.Request.Context(), string(session.Kind), res.Written)
	}
	h.success(c)
}

func (h *ExchangeHandler) importFile(c *gin.Context, session *exchange.ExchangeSession, filename string) {
	res, err := h.service.Commit(c.Request.Context(), session, filename)
	if err != nil {
		h.failure(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Exchange file imported",
		zap.String("filename", res.Filename),
		zap.String("document", res.Document.String()),
		zap.String("stats", res.Stats.String()),
	)
	h.success(c)
}

func (h *ExchangeHandler) query(c *gin.Context, session *exchange.ExchangeSession) {
	data, err := h.service.Query(c.Request.Context(), session)
	if err != nil {
		h.failure(c, err)
		return
	}
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, "text/xml; charset=utf-8", data)
}

func (h *ExchangeHandler) confirm(c *gin.Context, session *exchange.ExchangeSession) {
	n, err := h.service.ConfirmExported(c.Request.Context(), session)
	if err != nil {
		h.failure(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Orders confirmed as exported", zap.Int("count", n))
	h.success(c)
}

// token returns the session token from the cookie 1C echoes back.
func (h *ExchangeHandler) token(c *gin.Context) string {
	token, err := c.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return token
}

func (h *ExchangeHandler) success(c *gin.Context) {
	c.String(http.StatusOK, responseSuccess+"\n")
}

// failure reports err in protocol form. Protocol failures keep the 200
// status 1C expects.
func (h *ExchangeHandler) failure(c *gin.Context, err error) {
	_ = c.Error(err)
	msg := failureMessage(err)
	if msg == "" {
		logger.GetGinLogger(c).Error("Exchange request failed", zap.Error(err))
		msg = "Internal error"
	} else {
		logger.GetGinLogger(c).Warn("Exchange request failed", zap.String("reason", msg))
	}
	c.String(http.StatusOK, "%s\n%s", responseFailure, msg)
}

// failureMessage returns the client facing text of err, or "" when err is
// an internal failure that should not be exposed.
func failureMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	for _, target := range []error{
		exchange.ErrMalformedDocument,
		exchange.ErrParentNotFound,
		exchange.ErrParentNotVariable,
		exchange.ErrOrderNotFound,
	} {
		if errors.Is(err, target) {
			return err.Error()
		}
	}
	return ""
}

func modeAllowed(kind exchange.ExchangeKind, mode exchange.Mode) bool {
	switch kind {
	case exchange.KindCatalog:
		switch mode {
		case exchange.ModeCheckAuth, exchange.ModeInit, exchange.ModeFile, exchange.ModeImport:
			return true
		}
	case exchange.KindSale:
		switch mode {
		case exchange.ModeCheckAuth, exchange.ModeInit, exchange.ModeFile, exchange.ModeQuery, exchange.ModeSuccess:
			return true
		}
	}
	return false
}

func unknownMode(kind exchange.ExchangeKind) error {
	if kind == exchange.KindSale {
		return exchange.ErrUnknownSaleMode
	}
	return exchange.ErrUnknownCatalogMode
}

// queryError maps a binding failure of the query string to the protocol
// error 1C understands.
func queryError(q dto.ExchangeQuery, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return exchange.ErrUnknownExchangeType
	}
	for _, fe := range verrs {
		if fe.Field() == "Type" {
			return exchange.ErrUnknownExchangeType
		}
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Mode":
			return unknownMode(q.Kind())
		case "Filename":
			return exchange.ErrUnsafePath.WithDetail("filename longer than %s characters", fe.Param())
		}
	}
	return exchange.ErrUnknownExchangeType
}
