package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"zeroai/internal/cache"
	"zeroai/internal/models"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishTimelineEvent(context.Background(), models.TimelineEvent{Type: models.EventPostCreated}))
	assert.NoError(t, n.StartTimelineSubscriber(context.Background(), func(string) {}))
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	require.NoError(t, n.StartTimelineSubscriber(ctx, func(payload string) { got <- payload }))

	event := models.TimelineEvent{Type: models.EventPostLiked, PostID: "p1", UserID: "u1", State: models.LikeStateLiked}
	require.NoError(t, n.PublishTimelineEvent(ctx, event))

	select {
	case payload := <-got:
		var decoded models.TimelineEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
		assert.Equal(t, models.EventPostLiked, decoded.Type)
		assert.Equal(t, "p1", decoded.PostID)
		assert.Equal(t, models.LikeStateLiked, decoded.State)
	case <-time.After(testEventuallyTimeout):
		t.Fatalf("no message on %s", cache.TimelineEventsChannel)
	}
}

func TestHub_BroadcastAndUnregister(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(nil, "")
	require.NoError(t, err)
	b, err := hub.Register(nil, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	assert.Equal(t, 2, hub.Broadcast([]byte(`{"type":"post.created"}`)))
	assert.Equal(t, `{"type":"post.created"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"post.created"}`, string(<-b.Send))

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Count())
	_, open := <-a.Send
	assert.False(t, open)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())
	_, err = hub.Register(nil, "")
	assert.ErrorIs(t, err, ErrHubFull)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(nil, "")
	require.NoError(t, err)

	for i := 0; i < cap(c.Send); i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.Equal(t, 0, hub.Broadcast([]byte("overflow")))
	_ = hub.Shutdown(context.Background())
}

func TestHub_StartForwardsRedisEvents(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := hub.Register(nil, "")
	require.NoError(t, err)
	require.NoError(t, hub.Start(ctx, n))

	require.NoError(t, n.PublishTimelineEvent(ctx, models.TimelineEvent{Type: models.EventPostCreated, PostID: "p9"}))

	assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Contains(t, string(<-c.Send), `"postId":"p9"`)
	_ = hub.Shutdown(context.Background())
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher_RoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisherWithChannel(ch, "post_events")

	err := p.PublishTimelineEvent(context.Background(), models.TimelineEvent{Type: models.EventPostCreated, PostID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "post_events", ch.exchange)
	assert.Equal(t, models.EventPostCreated, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Contains(t, string(ch.msg.Body), `"postId":"p1"`)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

type failingPublisher struct{ err error }

func (f failingPublisher) PublishTimelineEvent(context.Context, models.TimelineEvent) error {
	return f.err
}

func TestMultiPublisher_PublishesToAllAndJoinsErrors(t *testing.T) {
	ch := &fakeChannel{}
	boom := errors.New("redis down")
	m := MultiPublisher{failingPublisher{boom}, nil, newAMQPPublisherWithChannel(ch, "post_events")}

	err := m.PublishTimelineEvent(context.Background(), models.TimelineEvent{Type: models.EventPostLiked})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.EventPostLiked, ch.key)
}
