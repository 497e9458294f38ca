// Package server provides HTTP handlers and server setup for the API.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"agripulse/internal/cache"
	"agripulse/internal/core"
	"agripulse/internal/history"
	"agripulse/internal/observability"
	"agripulse/internal/providers/insight"
	"agripulse/internal/snapshot"
)

// DefaultProduceTimeout bounds an on-demand produce triggered by a cache miss.
const DefaultProduceTimeout = 90 * time.Second

// AIClient is the conversational surface used by the chat and detect
// endpoints. Satisfied by insight.Client.
type AIClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt, mimeType, imageB64 string) (string, error)
}

// CachedRoute ties a producer to the cache domain it writes under.
type CachedRoute struct {
	Domain       string
	DefaultTopic string
	Producer     snapshot.Producer
}

// Handler holds the HTTP handlers
type Handler struct {
	store     *cache.Store
	dashboard CachedRoute
	terminal  CachedRoute
	options   snapshot.Producer

	ai         AIClient
	historyLog history.LoggerInterface

	// historyStore is nil when history recording is disabled
	historyStore history.Store

	produceTimeout time.Duration
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Store          *cache.Store
	Dashboard      CachedRoute
	Terminal       CachedRoute
	Options        snapshot.Producer
	AI             AIClient
	HistoryLog     history.LoggerInterface
	HistoryStore   history.Store
	ProduceTimeout time.Duration
}

// NewHandler creates a new handler.
func NewHandler(opts HandlerOptions) *Handler {
	h := &Handler{
		store:          opts.Store,
		dashboard:      opts.Dashboard,
		terminal:       opts.Terminal,
		options:        opts.Options,
		ai:             opts.AI,
		historyLog:     opts.HistoryLog,
		historyStore:   opts.HistoryStore,
		produceTimeout: opts.ProduceTimeout,
	}
	if h.historyLog == nil {
		h.historyLog = &history.NoopLogger{}
	}
	if h.produceTimeout <= 0 {
		h.produceTimeout = DefaultProduceTimeout
	}
	return h
}

// Root handles GET /
func (h *Handler) Root(c echo.Context) error {
	resp := map[string]interface{}{
		"service":       "agripulse",
		"status":        "ok",
		"cached_topics": h.store.Len(),
	}
	if t := h.store.LastRefresh(); !t.IsZero() {
		resp["last_refresh"] = t.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(c echo.Context) error {
	topic := c.QueryParam("location")
	if topic == "" {
		topic = h.dashboard.DefaultTopic
	}
	return h.serveCached(c, h.dashboard, topic)
}

// Terminal handles GET /terminal
func (h *Handler) Terminal(c echo.Context) error {
	topic := c.QueryParam("commodity")
	if topic == "" {
		topic = h.terminal.DefaultTopic
	}
	return h.serveCached(c, h.terminal, topic)
}

// InternationalOptions handles GET /terminal/international-options.
// The option lists are static so no cache round trip is involved.
func (h *Handler) InternationalOptions(c echo.Context) error {
	payload, err := h.options.Produce(c.Request().Context(), "")
	if err != nil {
		return handleError(c, err)
	}
	return c.JSONBlob(http.StatusOK, payload)
}

// serveCached implements the cache-read policy shared by the dashboard and
// terminal endpoints: serve the cached snapshot when allowed and present,
// otherwise produce synchronously and cache the result.
func (h *Handler) serveCached(c echo.Context, route CachedRoute, topic string) error {
	key := cache.Key(route.Domain, topic)
	allowCache := useCache(c)

	if allowCache {
		if entry, ok := h.store.Get(key); ok {
			observability.CacheHit(route.Domain)
			return respondAnnotated(c, entry.Payload, true, entry.FetchedAt)
		}
		observability.CacheMiss(route.Domain)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.produceTimeout)
	defer cancel()

	start := time.Now()
	payload, err := route.Producer.Produce(ctx, topic)
	h.recordProduce(route.Domain, topic, time.Since(start), err)

	if err != nil {
		return handleError(c, core.NewUnavailableError(
			fmt.Sprintf("data for %q is being prepared, please retry shortly", topic), err))
	}

	h.store.Set(key, payload)
	return respondAnnotated(c, payload, false, time.Now().UTC())
}

// recordProduce writes a history entry for an on-demand produce.
// Miss-triggered entries carry an empty pass ID to distinguish them from
// scheduler passes.
func (h *Handler) recordProduce(domain, topic string, elapsed time.Duration, err error) {
	entry := &history.Entry{
		ID:         uuid.New().String(),
		Domain:     domain,
		Topic:      topic,
		Timestamp:  time.Now().UTC(),
		DurationMS: elapsed.Milliseconds(),
		Status:     history.StatusOK,
	}
	if err != nil {
		entry.Status = history.StatusError
		entry.Error = err.Error()
	}
	h.historyLog.Write(entry)
}

// chatRequest is the body of POST /chat
type chatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if req.Message == "" {
		return handleError(c, core.NewInvalidRequestError("message is required", nil))
	}
	if h.ai == nil {
		return handleError(c, core.NewUnavailableError("assistant is not configured", nil))
	}

	text, err := h.ai.Generate(c.Request().Context(), insight.ChatPrompt(req.Message))
	if err != nil {
		return handleError(c, core.NewUpstreamError("gemini", "assistant request failed", err))
	}

	return c.JSON(http.StatusOK, map[string]string{"response": text})
}

// Detect handles POST /detect. It accepts a multipart image upload and
// returns a structured disease diagnosis.
func (h *Handler) Detect(c echo.Context) error {
	if h.ai == nil {
		return handleError(c, core.NewUnavailableError("detection is not configured", nil))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return handleError(c, core.NewInvalidRequestError("image file is required", err))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return handleError(c, core.NewInvalidRequestError("failed to open uploaded file", err))
	}
	defer func() {
		_ = file.Close() //nolint:errcheck
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError("failed to read uploaded file", err))
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	text, err := h.ai.GenerateVision(c.Request().Context(),
		insight.DiagnosisPrompt(), mimeType, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return handleError(c, core.NewUpstreamError("gemini", "detection request failed", err))
	}

	diagnosis := parseDiagnosis(text)
	diagnosis.Filename = fileHeader.Filename

	return c.JSON(http.StatusOK, diagnosis)
}

// parseDiagnosis decodes the model output into a Diagnosis. Output that is
// not valid JSON is preserved verbatim in RawResponse.
func parseDiagnosis(text string) core.Diagnosis {
	var d core.Diagnosis
	if err := json.Unmarshal([]byte(insight.StripFences(text)), &d); err != nil {
		return core.Diagnosis{RawResponse: text}
	}
	return d
}

// History handles GET /history
func (h *Handler) History(c echo.Context) error {
	if h.historyStore == nil {
		return handleError(c, core.NewUnavailableError("refresh history is not enabled", nil))
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return handleError(c, core.NewInvalidRequestError("limit must be a positive integer", err))
		}
		limit = parsed
	}

	entries, err := h.historyStore.Recent(c.Request().Context(), limit)
	if err != nil {
		return handleError(c, core.NewUnavailableError("failed to read refresh history", err))
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// useCache reads the use_cache query parameter, defaulting to true.
// Only an explicit "false" or "0" disables the cache read.
func useCache(c echo.Context) bool {
	raw := c.QueryParam("use_cache")
	if raw == "" {
		return true
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return parsed
}

// respondAnnotated writes a snapshot payload with cache-serving metadata.
func respondAnnotated(c echo.Context, payload json.RawMessage, fromCache bool, fetchedAt time.Time) error {
	var body map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		// A stored payload should always be a JSON object; serve it
		// unannotated rather than failing the request.
		return c.JSONBlob(http.StatusOK, payload)
	}

	body["served_from_cache"] = fromCache
	body["cached_at"] = fetchedAt.UTC().Format(time.RFC3339)

	return c.JSON(http.StatusOK, body)
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var svcErr *core.ServiceError
	if errors.As(err, &svcErr) {
		return c.JSON(svcErr.HTTPStatusCode(), svcErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
