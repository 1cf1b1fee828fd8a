// Package api wires the HTTP endpoints: the forms catalog, the session
// surface of the filling engine, and the final PDF rendering.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/db"
	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/session"
	"github.com/formvn/formbot/storage"
	"github.com/formvn/formbot/version"
)

const previewDPI = 150

// SessionEngine is the session state machine the handlers drive.
type SessionEngine interface {
	Start(ctx context.Context, formID string, clientInfo map[string]string) (*session.TurnResult, error)
	Turn(ctx context.Context, sessionID, input string) (*session.TurnResult, error)
	Answers(ctx context.Context, sessionID string) (*forms.FormSchema, map[string]forms.AnswerValue, error)
	Delete(ctx context.Context, sessionID string) error
}

// FormSource reads the schema catalog.
type FormSource interface {
	Get(ctx context.Context, formID string) (*forms.FormSchema, error)
	List(ctx context.Context) ([]forms.FormSchema, error)
}

// ObjectStore reads originals and caches previews.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Overlay renders answers onto the original document.
type Overlay interface {
	Fill(schema *forms.FormSchema, answers map[string]forms.AnswerValue, original []byte) []byte
}

// CrawlLog reads recent crawl records for the status listing.
type CrawlLog interface {
	Recent(ctx context.Context, limit int64) ([]db.CrawledDocument, error)
}

// Handlers holds the endpoint dependencies.
type Handlers struct {
	engine  SessionEngine
	forms   FormSource
	store   ObjectStore
	overlay Overlay
	crawled CrawlLog
	preview *previewCache
	logger  *logrus.Entry
}

// NewHandlers wires the API handlers.
func NewHandlers(engine SessionEngine, source FormSource, store ObjectStore, overlay Overlay,
	raster Rasterizer, crawled CrawlLog) *Handlers {
	return &Handlers{
		engine:  engine,
		forms:   source,
		store:   store,
		overlay: overlay,
		crawled: crawled,
		preview: &previewCache{store: store, raster: raster},
		logger:  common.ServiceLogger("api"),
	}
}

// Register mounts all routes on the Echo instance.
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", h.health)

	g := e.Group("/api")
	g.GET("/forms", h.listForms)
	g.GET("/crawled", h.listCrawled)
	g.GET("/forms/:id", h.getForm)
	g.GET("/forms/:id/preview", h.formPreview)

	g.POST("/sessions", h.createSession)
	g.POST("/sessions/:id/turns", h.turn)
	g.POST("/sessions/:id/confirm", h.confirm)
	g.POST("/sessions/:id/fill", h.fill)
	g.DELETE("/sessions/:id", h.deleteSession)
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "formbot",
		"version": version.Get(),
	})
}

// FormSummary is the catalog listing entry.
type FormSummary struct {
	FormID     string    `json:"form_id"`
	Title      string    `json:"title"`
	PageCount  int       `json:"page_count"`
	FieldCount int       `json:"field_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *Handlers) listForms(c echo.Context) error {
	schemas, err := h.forms.List(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	query := c.QueryParam("q")
	summaries := make([]FormSummary, 0, len(schemas))
	for _, s := range schemas {
		if !s.MatchesQuery(query) {
			continue
		}
		summaries = append(summaries, FormSummary{
			FormID:     s.FormID,
			Title:      s.Title,
			PageCount:  s.PageCount,
			FieldCount: len(s.Fields),
			CreatedAt:  s.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, summaries)
}

const defaultCrawledLimit = 50

// listCrawled reports the most recently crawled documents so operators can
// see what the pipeline has picked up.
func (h *Handlers) listCrawled(c echo.Context) error {
	limit := int64(defaultCrawledLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	docs, err := h.crawled.Recent(c.Request().Context(), limit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *Handlers) getForm(c echo.Context) error {
	schema, err := h.forms.Get(c.Request().Context(), formIDParam(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, schema)
}

func (h *Handlers) formPreview(c echo.Context) error {
	ctx := c.Request().Context()
	schema, err := h.forms.Get(ctx, formIDParam(c))
	if err != nil {
		return mapError(err)
	}
	png, err := h.preview.Render(ctx, schema)
	if err != nil {
		return mapError(err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

type createSessionRequest struct {
	FormID     string            `json:"form_id"`
	ClientInfo map[string]string `json:"client_info,omitempty"`
}

func (h *Handlers) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FormID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "form_id is required")
	}

	result, err := h.engine.Start(c.Request().Context(), req.FormID, req.ClientInfo)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

type turnRequest struct {
	Input string `json:"input"`
}

func (h *Handlers) turn(c echo.Context) error {
	var req turnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.engine.Turn(c.Request().Context(), c.Param("id"), req.Input)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type confirmRequest struct {
	Answer string `json:"answer"`
}

// confirm is a convenience alias for a turn carrying the yes/no answer.
func (h *Handlers) confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.engine.Turn(c.Request().Context(), c.Param("id"), req.Answer)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type fillRequest struct {
	Answers map[string]forms.AnswerValue `json:"answers,omitempty"`
}

func (h *Handlers) fill(c echo.Context) error {
	ctx := c.Request().Context()

	var req fillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	schema, answers, err := h.engine.Answers(ctx, c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	merged := make(map[string]forms.AnswerValue, len(answers)+len(req.Answers))
	for id, v := range answers {
		merged[id] = v
	}
	for id, v := range req.Answers {
		merged[id] = v
	}

	original, err := h.store.Get(ctx, schema.Source.Key)
	if err != nil {
		return mapError(err)
	}

	out := h.overlay.Fill(schema, merged, original)
	h.logger.WithFields(logrus.Fields{
		"session": c.Param("id"),
		"form_id": schema.FormID,
	}).Info("rendered filled document")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+common.Slugify(schema.FormID)+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", out)
}

func (h *Handlers) deleteSession(c echo.Context) error {
	if err := h.engine.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// formIDParam decodes the :id segment. Form ids are blob keys and contain
// slashes, so clients send them percent-encoded.
func formIDParam(c echo.Context) string {
	raw := c.Param("id")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// mapError translates store errors into HTTP status codes.
func mapError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, db.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
