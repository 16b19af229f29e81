package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/outbox"
)

type fakeStore struct {
	mu         sync.Mutex
	events     []*po.OutboxEvent
	published  []uuid.UUID
	reschedule []rescheduleCall
	claimToken string
}

type rescheduleCall struct {
	eventID       uuid.UUID
	nextAvailable time.Time
	lastErr       string
}

func (s *fakeStore) ClaimPending(_ context.Context, availableBefore, _ time.Time, limit int, lockToken string) ([]*po.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimToken = lockToken
	out := make([]*po.OutboxEvent, 0, limit)
	for _, e := range s.events {
		if e.PublishedAt != nil || e.AvailableAt.After(availableBefore) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, eventID uuid.UUID, lockToken string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lockToken != s.claimToken {
		return errors.New("lock lost")
	}
	for _, e := range s.events {
		if e.EventID == eventID {
			at := publishedAt
			e.PublishedAt = &at
			s.published = append(s.published, eventID)
			return nil
		}
	}
	return errors.New("event not found")
}

func (s *fakeStore) Reschedule(_ context.Context, eventID uuid.UUID, _ string, nextAvailable time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.EventID == eventID {
			e.AvailableAt = nextAvailable
			e.DeliveryAttempts++
			s.reschedule = append(s.reschedule, rescheduleCall{eventID: eventID, nextAvailable: nextAvailable, lastErr: lastErr})
			return nil
		}
	}
	return errors.New("event not found")
}

func (s *fakeStore) CountPending(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.events {
		if e.PublishedAt == nil {
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	failTimes int
	calls     []publishCall
	notify    chan struct{}
}

type publishCall struct {
	routingKey string
	body       []byte
	headers    amqp.Table
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, body []byte, headers amqp.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{routingKey: routingKey, body: body, headers: headers})
	if p.notify != nil {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
	if p.failTimes > 0 {
		p.failTimes--
		return errors.New("broker unavailable")
	}
	return nil
}

func newEvent(routingKey string) *po.OutboxEvent {
	return &po.OutboxEvent{
		EventID:     uuid.New(),
		AggregateID: uuid.New(),
		EventType:   "video.processing.requested",
		RoutingKey:  routingKey,
		Payload:     []byte(`{"videoId":"x"}`),
		Headers:     []byte(`{"source":"media"}`),
		CreatedAt:   time.Now().Add(-time.Second),
		AvailableAt: time.Now().Add(-time.Second),
	}
}

func runUntil(t *testing.T, runner *outbox.Runner, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finished := make(chan struct{})
	go func() {
		_ = runner.Run(ctx)
		close(finished)
	}()

	deadline := time.After(3 * time.Second)
	for !done() {
		select {
		case <-deadline:
			cancel()
			<-finished
			t.Fatalf("condition not reached before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-finished
}

func TestRunnerPublishesClaimedEvents(t *testing.T) {
	store := &fakeStore{events: []*po.OutboxEvent{newEvent("video-processing"), newEvent("video-processing")}}
	publisher := &fakePublisher{}

	runner, err := outbox.NewRunner(outbox.RunnerParams{
		Store:     store,
		Publisher: publisher,
		Config:    outbox.Config{TickInterval: 10 * time.Millisecond, BatchSize: 8},
		Logger:    log.NewStdLogger(testWriter{t}),
	})
	require.NoError(t, err)

	runUntil(t, runner, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.published) == 2
	})

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.GreaterOrEqual(t, len(publisher.calls), 2)
	require.Equal(t, "video-processing", publisher.calls[0].routingKey)
	require.Equal(t, "media", publisher.calls[0].headers["source"])
}

func TestRunnerReschedulesOnPublishFailure(t *testing.T) {
	event := newEvent("video-processing")
	store := &fakeStore{events: []*po.OutboxEvent{event}}
	publisher := &fakePublisher{failTimes: 1}

	runner, err := outbox.NewRunner(outbox.RunnerParams{
		Store:     store,
		Publisher: publisher,
		Config: outbox.Config{
			TickInterval:   10 * time.Millisecond,
			InitialBackoff: time.Hour,
			MaxBackoff:     2 * time.Hour,
		},
		Logger: log.NewStdLogger(testWriter{t}),
	})
	require.NoError(t, err)

	runUntil(t, runner, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.reschedule) == 1
	})

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Empty(t, store.published)
	require.Equal(t, event.EventID, store.reschedule[0].eventID)
	require.Equal(t, "broker unavailable", store.reschedule[0].lastErr)
	require.True(t, store.reschedule[0].nextAvailable.After(time.Now().Add(30*time.Minute)),
		"backoff should push availability well into the future")
	require.EqualValues(t, 1, event.DeliveryAttempts)
}

func TestRunnerSkipsFutureEvents(t *testing.T) {
	future := newEvent("video-processing")
	future.AvailableAt = time.Now().Add(time.Hour)
	due := newEvent("video-processing")
	store := &fakeStore{events: []*po.OutboxEvent{future, due}}
	publisher := &fakePublisher{}

	runner, err := outbox.NewRunner(outbox.RunnerParams{
		Store:     store,
		Publisher: publisher,
		Config:    outbox.Config{TickInterval: 10 * time.Millisecond},
		Logger:    log.NewStdLogger(testWriter{t}),
	})
	require.NoError(t, err)

	runUntil(t, runner, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.published) == 1
	})

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Equal(t, due.EventID, store.published[0])
	require.Nil(t, future.PublishedAt)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
