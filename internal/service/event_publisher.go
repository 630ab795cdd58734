package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/observability"
)

// EventPublisher delivers domain events to live subscribers and peer nodes.
// Publishing is best effort and never fails the calling operation.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.ResultEvent)
}

type eventEnvelope struct {
	Source string          `json:"source"`
	Event  dto.ResultEvent `json:"event"`
	SentAt time.Time       `json:"sent_at"`
}

// eventBroker fans events out over Redis pub/sub and NATS. Either transport may be nil.
type eventBroker struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

func newEventBroker(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *eventBroker {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":results"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".results"
	}

	return &eventBroker{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger,
	}
}

func (b *eventBroker) publish(ctx context.Context, event dto.ResultEvent) error {
	payload, err := json.Marshal(eventEnvelope{
		Source: b.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	observability.EventsPublished().WithLabelValues(event.Type).Inc()
	return errors.Join(errs...)
}

// consume delivers events published by other nodes to handle until ctx is done.
func (b *eventBroker) consume(ctx context.Context, handle func(dto.ResultEvent)) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx, handle)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx, handle)
	}
}

func (b *eventBroker) consumeRedis(ctx context.Context, handle func(dto.ResultEvent)) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			b.logger.Error().Err(err).Msg("results redis subscription closed")
			return
		}
		b.dispatch([]byte(msg.Payload), handle)
	}
}

func (b *eventBroker) consumeNATS(ctx context.Context, handle func(dto.ResultEvent)) {
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.dispatch(msg.Data, handle)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats results subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain results nats subscription")
		}
	}()
}

func (b *eventBroker) dispatch(payload []byte, handle func(dto.ResultEvent)) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("invalid results event payload")
		return
	}

	if envelope.Source == b.nodeID {
		return
	}

	handle(envelope.Event)
}
