package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blablablasealsaresoft/infofi/internal/application/dto"
	"github.com/blablablasealsaresoft/infofi/internal/application/port"
	"github.com/blablablasealsaresoft/infofi/internal/domain/landing"
	"github.com/blablablasealsaresoft/infofi/internal/infrastructure/cache/memory"
	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

type countingRenderer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRenderer) Render(_ context.Context, w io.Writer) error {
	r.calls.Add(1)
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "<h1>InfoFi</h1>")
	return err
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, string) error        { return nil }
func (brokenCache) DeletePattern(context.Context, string) error { return nil }
func (brokenCache) Close() error                                { return nil }

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []interface{}
	err      error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newUseCase(t *testing.T, renderer port.Renderer, cache port.Cache, publisher port.EventPublisher) *RenderLandingPageUseCase {
	t.Helper()

	uc, err := NewRenderLandingPageUseCase(
		landing.Default("http://localhost:8000/docs"),
		renderer,
		cache,
		publisher,
		RenderLandingPageConfig{},
		logger.NewNop(),
	)
	require.NoError(t, err)
	return uc
}

func TestRenderLandingPageWithoutCache(t *testing.T) {
	renderer := &countingRenderer{}
	uc := newUseCase(t, renderer, nil, nil)

	first, err := uc.Execute(context.Background())
	require.NoError(t, err)
	second, err := uc.Execute(context.Background())
	require.NoError(t, err)

	require.Equal(t, "<h1>InfoFi</h1>", string(first.HTML))
	require.Equal(t, first.HTML, second.HTML)
	require.Equal(t, uc.ETag(), first.ETag)
	require.EqualValues(t, 2, renderer.calls.Load())
}

func TestRenderLandingPageServesFromCache(t *testing.T) {
	renderer := &countingRenderer{}
	cache := memory.NewCache(time.Minute)
	uc := newUseCase(t, renderer, cache, nil)
	ctx := context.Background()

	first, err := uc.Execute(ctx)
	require.NoError(t, err)
	uc.Wait()

	var stored dto.RenderedPageDTO
	require.NoError(t, cache.Get(ctx, uc.CacheKey(), &stored))
	require.Equal(t, first.HTML, stored.HTML)

	second, err := uc.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, first.HTML, second.HTML)
	require.Equal(t, first.ETag, second.ETag)
	require.EqualValues(t, 1, renderer.calls.Load(), "second call must be served from cache")
}

func TestRenderLandingPageSurvivesCacheFailures(t *testing.T) {
	renderer := &countingRenderer{}
	uc := newUseCase(t, renderer, brokenCache{}, nil)

	page, err := uc.Execute(context.Background())
	require.NoError(t, err)
	uc.Wait()

	require.Equal(t, "<h1>InfoFi</h1>", string(page.HTML))
}

func TestRenderLandingPageWrapsRenderErrors(t *testing.T) {
	renderErr := errors.New("writer closed")
	uc := newUseCase(t, &countingRenderer{err: renderErr}, memory.NewCache(time.Minute), nil)

	_, err := uc.Execute(context.Background())
	require.ErrorIs(t, err, renderErr)
	require.Contains(t, err.Error(), "failed to render landing page")
}

func TestRenderLandingPageInvalidate(t *testing.T) {
	cache := memory.NewCache(time.Minute)
	uc := newUseCase(t, &countingRenderer{}, cache, nil)
	ctx := context.Background()

	_, err := uc.Execute(ctx)
	require.NoError(t, err)
	uc.Wait()
	require.Equal(t, 1, cache.Len())

	require.NoError(t, uc.Invalidate(ctx))
	require.Zero(t, cache.Len())

	require.NoError(t, newUseCase(t, &countingRenderer{}, nil, nil).Invalidate(ctx))
}

func TestRecordViewPublishesEvent(t *testing.T) {
	publisher := &recordingPublisher{}
	uc := newUseCase(t, &countingRenderer{}, nil, publisher)

	event := dto.NewPageViewEventDTO("/", "https://x.com", "curl/8", "req-1", uc.ETag(), time.Now())
	uc.RecordView(context.Background(), event)

	require.Equal(t, []string{DefaultPageViewSubject}, publisher.subjects)
	require.Same(t, event, publisher.events[0])
	require.NotEmpty(t, event.ID)
}

func TestRecordViewIgnoresPublisherErrors(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("nats: timeout")}
	uc := newUseCase(t, &countingRenderer{}, nil, publisher)

	require.NotPanics(t, func() {
		uc.RecordView(context.Background(), dto.NewPageViewEventDTO("/", "", "", "", uc.ETag(), time.Now()))
	})
	require.Len(t, publisher.events, 1)

	noPublisher := newUseCase(t, &countingRenderer{}, nil, nil)
	require.NotPanics(t, func() { noPublisher.RecordView(context.Background(), nil) })
}

func TestNewRenderLandingPageUseCaseValidates(t *testing.T) {
	page := landing.Default("not a url")

	_, err := NewRenderLandingPageUseCase(page, &countingRenderer{}, nil, nil, RenderLandingPageConfig{}, logger.NewNop())
	require.ErrorIs(t, err, landing.ErrInvalidContent)

	_, err = NewRenderLandingPageUseCase(landing.Default("http://localhost:8000/docs"), nil, nil, nil, RenderLandingPageConfig{}, logger.NewNop())
	require.Error(t, err)
}
