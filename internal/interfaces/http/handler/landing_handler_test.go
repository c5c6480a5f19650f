package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blablablasealsaresoft/infofi/internal/application/dto"
	"github.com/blablablasealsaresoft/infofi/internal/application/port"
	"github.com/blablablasealsaresoft/infofi/internal/application/usecase"
	"github.com/blablablasealsaresoft/infofi/internal/domain/landing"
	"github.com/blablablasealsaresoft/infofi/internal/interfaces/view"
	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(_ context.Context, w io.Writer) error {
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "<h1>InfoFi</h1>")
	return err
}

type countingMetrics struct {
	views, notModified, renderErrors int
}

func (m *countingMetrics) ObserveLandingView()        { m.views++ }
func (m *countingMetrics) ObserveLandingNotModified() { m.notModified++ }
func (m *countingMetrics) ObserveRenderError()        { m.renderErrors++ }

type capturePublisher struct {
	mu     sync.Mutex
	events []*dto.PageViewEventDTO
}

func (p *capturePublisher) PublishEvent(_ context.Context, _ string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(*dto.PageViewEventDTO); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newLandingHandler(t *testing.T, renderer port.Renderer, publisher port.EventPublisher) (*LandingHandler, *countingMetrics) {
	t.Helper()

	uc, err := usecase.NewRenderLandingPageUseCase(
		landing.Default("http://localhost:8000/docs"),
		renderer,
		nil,
		publisher,
		usecase.RenderLandingPageConfig{},
		logger.NewNop(),
	)
	require.NoError(t, err)

	m := &countingMetrics{}
	return NewLandingHandler(uc, 5*time.Minute, m, logger.NewNop()), m
}

func TestShowLandingRendersPage(t *testing.T) {
	publisher := &capturePublisher{}
	page := landing.Default("http://localhost:8000/docs")
	h, m := newLandingHandler(t, view.LandingPage(page), publisher)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Referer", "https://twitter.com/")
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()

	h.ShowLanding(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, `"`+page.Fingerprint()+`"`, rec.Header().Get("ETag"))
	require.Contains(t, rec.Body.String(), "Launch Dashboard")
	require.Equal(t, 1, m.views)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	require.Equal(t, "/", event.Path)
	require.Equal(t, "https://twitter.com/", event.Referrer)
	require.Equal(t, "test-agent", event.UserAgent)
	require.Equal(t, page.Fingerprint(), event.ETag)
	require.NotEmpty(t, event.ID)
}

func TestShowLandingMaxAgeFollowsConfiguredTTL(t *testing.T) {
	uc, err := usecase.NewRenderLandingPageUseCase(
		landing.Default("http://localhost:8000/docs"),
		stubRenderer{},
		nil,
		nil,
		usecase.RenderLandingPageConfig{},
		logger.NewNop(),
	)
	require.NoError(t, err)

	for ttl, want := range map[time.Duration]string{
		90 * time.Second: "public, max-age=90",
		time.Hour:        "public, max-age=3600",
	} {
		rec := httptest.NewRecorder()
		NewLandingHandler(uc, ttl, nil, logger.NewNop()).ShowLanding(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, want, rec.Header().Get("Cache-Control"))
	}
}

func TestShowLandingNotModified(t *testing.T) {
	publisher := &capturePublisher{}
	h, m := newLandingHandler(t, stubRenderer{}, publisher)

	for _, header := range []string{
		`"` + h.renderUC.ETag() + `"`,
		`W/"` + h.renderUC.ETag() + `"`,
		`"stale", "` + h.renderUC.ETag() + `"`,
		"*",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("If-None-Match", header)
		rec := httptest.NewRecorder()

		h.ShowLanding(rec, req)

		require.Equal(t, http.StatusNotModified, rec.Code, header)
		require.Empty(t, rec.Body.String())
	}

	require.Equal(t, 4, m.notModified)
	require.Zero(t, m.views)
	require.Empty(t, publisher.events)
}

func TestShowLandingHeadOmitsBody(t *testing.T) {
	publisher := &capturePublisher{}
	h, m := newLandingHandler(t, stubRenderer{}, publisher)

	rec := httptest.NewRecorder()
	h.ShowLanding(rec, httptest.NewRequest(http.MethodHead, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Body.String())
	require.Zero(t, m.views)
	require.Empty(t, publisher.events)
}

func TestShowLandingRenderFailure(t *testing.T) {
	publisher := &capturePublisher{}
	h, m := newLandingHandler(t, stubRenderer{err: errors.New("template exploded")}, publisher)

	rec := httptest.NewRecorder()
	h.ShowLanding(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to render page")
	require.NotContains(t, rec.Body.String(), "template exploded")
	require.Empty(t, rec.Header().Get("ETag"))
	require.Equal(t, 1, m.renderErrors)
	require.Empty(t, publisher.events)
}

func TestEtagMatches(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{header: "", want: false},
		{header: `"abc"`, want: true},
		{header: `W/"abc"`, want: true},
		{header: `"x", "abc"`, want: true},
		{header: `"x"`, want: false},
		{header: "*", want: true},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, etagMatches(tt.header, `"abc"`), tt.header)
	}
}
