package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blablablasealsaresoft/infofi/internal/application/dto"
	"github.com/blablablasealsaresoft/infofi/internal/application/port"
	"github.com/blablablasealsaresoft/infofi/internal/domain/landing"
	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

const (
	DefaultPageViewSubject   = "infofi.landing.viewed"
	defaultCacheWriteTimeout = 3 * time.Second
	landingCacheKeyPrefix    = "landing:html:"
)

// RenderLandingPageConfig содержит необязательные параметры use case
type RenderLandingPageConfig struct {
	EventSubject      string
	CacheWriteTimeout time.Duration
}

// RenderLandingPageUseCase рендерит landing page с кешированием и публикует просмотры
type RenderLandingPageUseCase struct {
	etag      string
	renderer  port.Renderer
	cache     port.Cache
	publisher port.EventPublisher
	cfg       RenderLandingPageConfig
	logger    *logger.Logger
	now       func() time.Time

	pending sync.WaitGroup
}

// NewRenderLandingPageUseCase создает use case. cache и publisher могут быть nil.
func NewRenderLandingPageUseCase(
	page landing.Page,
	renderer port.Renderer,
	cache port.Cache,
	publisher port.EventPublisher,
	cfg RenderLandingPageConfig,
	logger *logger.Logger,
) (*RenderLandingPageUseCase, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if renderer == nil {
		return nil, errors.New("landing renderer is required")
	}
	if cfg.EventSubject == "" {
		cfg.EventSubject = DefaultPageViewSubject
	}
	if cfg.CacheWriteTimeout <= 0 {
		cfg.CacheWriteTimeout = defaultCacheWriteTimeout
	}

	return &RenderLandingPageUseCase{
		etag:      page.Fingerprint(),
		renderer:  renderer,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// ETag возвращает fingerprint контента без рендеринга
func (uc *RenderLandingPageUseCase) ETag() string {
	return uc.etag
}

// CacheKey возвращает ключ, под которым хранится отрендеренная страница
func (uc *RenderLandingPageUseCase) CacheKey() string {
	return landingCacheKeyPrefix + uc.etag
}

// Execute возвращает HTML landing page
func (uc *RenderLandingPageUseCase) Execute(ctx context.Context) (*dto.RenderedPageDTO, error) {
	// Если кеш не настроен, рендерим напрямую
	if uc.cache == nil {
		return uc.render(ctx)
	}

	cacheKey := uc.CacheKey()

	var cached dto.RenderedPageDTO
	err := uc.cache.Get(ctx, cacheKey, &cached)
	if err == nil && len(cached.HTML) > 0 {
		uc.logger.Debug("Cache hit for landing page", "key", cacheKey)
		return &cached, nil
	}
	if err != nil && !errors.Is(err, port.ErrCacheMiss) {
		uc.logger.Warn("Failed to read landing page from cache", "key", cacheKey, "error", err.Error())
	}

	rendered, err := uc.render(ctx)
	if err != nil {
		return nil, err
	}

	// Сохраняем в кеш асинхронно, не блокируем ответ
	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()

		writeCtx, cancel := context.WithTimeout(context.Background(), uc.cfg.CacheWriteTimeout)
		defer cancel()

		if err := uc.cache.Set(writeCtx, cacheKey, rendered); err != nil {
			uc.logger.Warn("Failed to cache landing page", "key", cacheKey, "error", err.Error())
		}
	}()

	return rendered, nil
}

// RecordView публикует событие просмотра. Ошибки брокера только логируются.
func (uc *RenderLandingPageUseCase) RecordView(ctx context.Context, event *dto.PageViewEventDTO) {
	if uc.publisher == nil || event == nil {
		return
	}

	if err := uc.publisher.PublishEvent(ctx, uc.cfg.EventSubject, event); err != nil {
		uc.logger.Warn("Failed to publish page view event",
			"subject", uc.cfg.EventSubject,
			"event_id", event.ID,
			"error", err.Error(),
		)
	}
}

// Invalidate удаляет все закешированные версии landing page
func (uc *RenderLandingPageUseCase) Invalidate(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.DeletePattern(ctx, landingCacheKeyPrefix+"*"); err != nil {
		return fmt.Errorf("failed to invalidate landing cache: %w", err)
	}
	return nil
}

// Wait ожидает завершения фоновых записей в кеш
func (uc *RenderLandingPageUseCase) Wait() {
	uc.pending.Wait()
}

func (uc *RenderLandingPageUseCase) render(ctx context.Context) (*dto.RenderedPageDTO, error) {
	var buf bytes.Buffer
	if err := uc.renderer.Render(ctx, &buf); err != nil {
		uc.logger.Error("Failed to render landing page", err)
		return nil, fmt.Errorf("failed to render landing page: %w", err)
	}

	return &dto.RenderedPageDTO{
		HTML:       buf.Bytes(),
		ETag:       uc.etag,
		RenderedAt: uc.now().UTC(),
	}, nil
}
