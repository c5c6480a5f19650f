package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

const (
	testStream  = "INFOFI_LANDING_TEST"
	testSubject = "infofi.landing.viewed"
)

type viewEvent struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := natstest.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv
}

func newTestPublisher(t *testing.T, srv *server.Server) *NATSPublisher {
	t.Helper()

	publisher, err := NewNATSPublisher(Options{
		URL:          srv.ClientURL(),
		Stream:       testStream,
		Subjects:     []string{testSubject},
		FlushTimeout: 2 * time.Second,
	}, logger.NewNop())
	require.NoError(t, err)
	return publisher
}

func inspectStream(t *testing.T, srv *server.Server) nats.JetStreamContext {
	t.Helper()

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := nc.JetStream()
	require.NoError(t, err)
	return js
}

func TestPublisherCreatesStreamAndDeliversOnClose(t *testing.T) {
	srv := runJetStreamServer(t)
	publisher := newTestPublisher(t, srv)

	ctx := context.Background()
	require.NoError(t, publisher.PublishEvent(ctx, testSubject, viewEvent{ID: "a", Path: "/"}))
	require.NoError(t, publisher.PublishEvent(ctx, testSubject, viewEvent{ID: "b", Path: "/"}))
	require.NoError(t, publisher.Close())

	js := inspectStream(t, srv)
	info, err := js.StreamInfo(testStream)
	require.NoError(t, err)
	require.Equal(t, []string{testSubject}, info.Config.Subjects)
	require.EqualValues(t, 2, info.State.Msgs)

	msg, err := js.GetMsg(testStream, 1)
	require.NoError(t, err)
	require.Equal(t, testSubject, msg.Subject)

	var got viewEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	require.Equal(t, viewEvent{ID: "a", Path: "/"}, got)
}

func TestPublisherReusesExistingStream(t *testing.T) {
	srv := runJetStreamServer(t)

	first := newTestPublisher(t, srv)
	require.NoError(t, first.PublishEvent(context.Background(), testSubject, viewEvent{ID: "a"}))
	require.NoError(t, first.Close())

	second := newTestPublisher(t, srv)
	require.NoError(t, second.Close())

	info, err := inspectStream(t, srv).StreamInfo(testStream)
	require.NoError(t, err)
	require.EqualValues(t, 1, info.State.Msgs)
}

func TestPublisherRejectsCanceledContext(t *testing.T) {
	srv := runJetStreamServer(t)
	publisher := newTestPublisher(t, srv)
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishEvent(ctx, testSubject, viewEvent{ID: "a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPublisherCloseIsIdempotent(t *testing.T) {
	srv := runJetStreamServer(t)
	publisher := newTestPublisher(t, srv)

	require.NoError(t, publisher.Close())
	require.NoError(t, publisher.Close())

	require.Eventually(t, func() bool {
		return publisher.PublishEvent(context.Background(), testSubject, viewEvent{ID: "late"}) != nil
	}, 2*time.Second, 20*time.Millisecond, "publishing after close must fail once the connection is drained")
}
