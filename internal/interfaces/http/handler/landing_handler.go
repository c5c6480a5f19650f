package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blablablasealsaresoft/infofi/internal/application/dto"
	"github.com/blablablasealsaresoft/infofi/internal/application/usecase"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/http/middleware"
	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

// LandingMetrics получает события показа landing page. Может быть nil.
type LandingMetrics interface {
	ObserveLandingView()
	ObserveLandingNotModified()
	ObserveRenderError()
}

// LandingHandler отдает landing page
type LandingHandler struct {
	renderUC *usecase.RenderLandingPageUseCase
	maxAge   time.Duration
	metrics  LandingMetrics
	logger   *logger.Logger
	now      func() time.Time
}

// NewLandingHandler создает новый handler
func NewLandingHandler(
	renderUC *usecase.RenderLandingPageUseCase,
	maxAge time.Duration,
	metrics LandingMetrics,
	logger *logger.Logger,
) *LandingHandler {
	return &LandingHandler{
		renderUC: renderUC,
		maxAge:   maxAge,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ShowLanding отображает landing page
func (h *LandingHandler) ShowLanding(w http.ResponseWriter, r *http.Request) {
	etag := `"` + h.renderUC.ETag() + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.maxAge.Seconds())))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		if h.metrics != nil {
			h.metrics.ObserveLandingNotModified()
		}
		w.WriteHeader(http.StatusNotModified)
		return
	}

	page, err := h.renderUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to render landing page", err, "path", r.URL.Path)
		if h.metrics != nil {
			h.metrics.ObserveRenderError()
		}
		w.Header().Del("ETag")
		w.Header().Del("Cache-Control")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := w.Write(page.HTML); err != nil {
		h.logger.Warn("Failed to write landing page", "error", err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveLandingView()
	}

	h.renderUC.RecordView(r.Context(), dto.NewPageViewEventDTO(
		r.URL.Path,
		r.Referer(),
		r.UserAgent(),
		middleware.RequestIDFromContext(r.Context()),
		page.ETag,
		h.now(),
	))
}

// etagMatches реализует сравнение If-None-Match (RFC 9110, weak comparison)
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
