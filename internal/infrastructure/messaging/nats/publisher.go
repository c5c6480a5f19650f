package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

const (
	defaultClientName   = "infofi-web"
	defaultFlushTimeout = 5 * time.Second
	defaultStreamMaxAge = 7 * 24 * time.Hour
)

// Options описывает подключение к NATS и stream для событий
type Options struct {
	URL string
	// Stream создается при старте, если его еще нет. Пустое значение отключает проверку.
	Stream       string
	Subjects     []string
	FlushTimeout time.Duration
}

// NATSPublisher implements EventPublisher for NATS JetStream
type NATSPublisher struct {
	nc           *nats.Conn
	js           nats.JetStreamContext
	flushTimeout time.Duration
	logger       *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewNATSPublisher подключается к NATS и проверяет stream событий
func NewNATSPublisher(opts Options, log *logger.Logger) (*NATSPublisher, error) {
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultFlushTimeout
	}

	// Connect to NATS with retry
	nc, err := nats.Connect(opts.URL,
		nats.Name(defaultClientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if opts.Stream != "" {
		if err := ensureStream(js, opts.Stream, opts.Subjects, log); err != nil {
			nc.Close()
			return nil, err
		}
	}

	log.Info("Connected to NATS", "url", opts.URL, "stream", opts.Stream)

	return &NATSPublisher{
		nc:           nc,
		js:           js,
		flushTimeout: opts.FlushTimeout,
		logger:       log,
	}, nil
}

func ensureStream(js nats.JetStreamContext, name string, subjects []string, log *logger.Logger) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  nats.FileStorage,
		MaxAge:   defaultStreamMaxAge,
	}); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}

	log.Info("NATS stream created", "stream", name, "subjects", subjects)
	return nil
}

// PublishEvent публикует событие асинхронно. Подтверждение ожидается в Close.
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Просмотры не критичны, ack не ждем
	if _, err = p.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close дожидается подтверждений и закрывает соединение. Повторные вызовы безопасны.
func (p *NATSPublisher) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Info("Closing NATS connection")

		select {
		case <-p.js.PublishAsyncComplete():
		case <-time.After(p.flushTimeout):
			p.logger.Warn("Timed out waiting for pending NATS publishes",
				"pending", p.js.PublishAsyncPending(),
			)
		}

		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			p.closeErr = fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	})
	return p.closeErr
}
