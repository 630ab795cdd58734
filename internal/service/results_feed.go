package service

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/observability"
)

const resultsFeedBufferSize = 16

// ResultsFeed streams submission and grade events per exam to websocket clients.
type ResultsFeed interface {
	EventPublisher
	Subscribe(examID uint) (<-chan dto.ResultEvent, func())
	Start(ctx context.Context)
}

type resultsFeed struct {
	broker *eventBroker
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.ResultEvent]struct{}
}

// NewResultsFeed builds the feed hub. Redis and NATS are optional peers for
// multi-node delivery.
func NewResultsFeed(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) ResultsFeed {
	feedLogger := logger.With().Str("component", "results_feed").Logger()
	return &resultsFeed{
		broker:      newEventBroker(redisClient, natsConn, channelBase, feedLogger),
		logger:      feedLogger,
		now:         time.Now,
		subscribers: make(map[uint]map[chan dto.ResultEvent]struct{}),
	}
}

func (f *resultsFeed) Start(ctx context.Context) {
	f.broker.consume(ctx, f.broadcast)
}

func (f *resultsFeed) Publish(ctx context.Context, event dto.ResultEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = f.now().UTC()
	}

	f.broadcast(event)
	if err := f.broker.publish(ctx, event); err != nil {
		f.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish results event to broker")
	}
}

func (f *resultsFeed) Subscribe(examID uint) (<-chan dto.ResultEvent, func()) {
	channel := make(chan dto.ResultEvent, resultsFeedBufferSize)

	f.mu.Lock()
	if _, exists := f.subscribers[examID]; !exists {
		f.subscribers[examID] = make(map[chan dto.ResultEvent]struct{})
	}
	f.subscribers[examID][channel] = struct{}{}
	f.mu.Unlock()
	observability.ResultsFeedConnections().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			f.mu.Lock()
			if subscribers, ok := f.subscribers[examID]; ok {
				delete(subscribers, channel)
				close(channel)
				if len(subscribers) == 0 {
					delete(f.subscribers, examID)
				}
			}
			f.mu.Unlock()
			observability.ResultsFeedConnections().Dec()
		})
	}

	return channel, cleanup
}

// broadcast drops the event for subscribers whose buffer is full.
func (f *resultsFeed) broadcast(event dto.ResultEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.subscribers[event.ExamID] {
		select {
		case ch <- event:
		default:
		}
	}
}
