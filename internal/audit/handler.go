package audit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/sacsol/sacsol-api/internal/platform/httpx"
	"github.com/sacsol/sacsol-api/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxDateRange    = 90 * 24 * time.Hour

	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler serves the audit timeline endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter *Exporter
	now      func() time.Time
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, exporter *Exporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, exporter: exporter, now: time.Now}
}

// MountRoutes registers the timeline and CSV export endpoints. CSV export
// is rate limited per caller because it scans without paging.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)
	r.Get("/", h.handleTimeline)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if identity := shared.IdentityFromContext(r.Context()); identity != nil {
		return "user:" + strconv.FormatInt(identity.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

type timelineRowResponse struct {
	At        time.Time       `json:"at"`
	Actor     string          `json:"actor,omitempty"`
	Verb      string          `json:"verb"`
	LPONumber string          `json:"lpo_number,omitempty"`
	GRN       string          `json:"grn,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rows := make([]timelineRowResponse, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = timelineRowResponse{
			At:        row.At,
			Actor:     row.Actor,
			Verb:      row.Verb,
			LPONumber: row.LPONumber,
			GRN:       row.GRNNumber,
			Payload:   json.RawMessage(row.PayloadRaw),
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows": rows,
		"paging": map[string]any{
			"page":      result.Paging.Page,
			"page_size": result.Paging.PageSize,
			"has_next":  result.Paging.HasNext,
			"prev_page": result.Paging.PrevPage,
			"next_page": result.Paging.NextPage,
		},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	csvBytes, err := h.exporter.WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode export")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	now := h.now().UTC()
	query := r.URL.Query()

	toStr := strings.TrimSpace(query.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return TimelineFilters{}, ErrValidation
	}
	// Include the whole "to" day.
	to = to.Add(24*time.Hour - time.Nanosecond)

	fromStr := strings.TrimSpace(query.Get("from"))
	if fromStr == "" {
		fromStr = to.Add(-7 * 24 * time.Hour).Format("2006-01-02")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return TimelineFilters{}, ErrValidation
	}
	if from.After(to) || to.Sub(from) > maxDateRange {
		return TimelineFilters{}, ErrValidation
	}

	page := 1
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, ErrValidation
		}
		page = parsed
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(query.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, ErrValidation
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		pageSize = parsed
	}
	var lpoID int64
	if v := strings.TrimSpace(query.Get("lpo_id")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, ErrValidation
		}
		lpoID = parsed
	}

	return TimelineFilters{
		From:     from,
		To:       to,
		Actor:    strings.TrimSpace(query.Get("actor")),
		Verb:     strings.TrimSpace(query.Get("verb")),
		LPOID:    lpoID,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
