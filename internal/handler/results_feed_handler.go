package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/dto"
	"github.com/noah-isme/codesarge-api/internal/middleware"
	"github.com/noah-isme/codesarge-api/internal/service"
	"github.com/noah-isme/codesarge-api/internal/utils"
)

const resultsFeedPingInterval = 30 * time.Second

// ResultsFeedHandler upgrades results pages to a live websocket feed.
type ResultsFeedHandler struct {
	feed   service.ResultsFeed
	exams  service.ExamService
	logger zerolog.Logger
}

// NewResultsFeedHandler constructs the handler.
func NewResultsFeedHandler(feed service.ResultsFeed, exams service.ExamService, logger zerolog.Logger) *ResultsFeedHandler {
	return &ResultsFeedHandler{
		feed:   feed,
		exams:  exams,
		logger: logger.With().Str("component", "results_feed_handler").Logger(),
	}
}

// Register binds the websocket route under the exams group.
func (h *ResultsFeedHandler) Register(router fiber.Router) {
	router.Get("/:id/results/ws", h.upgrade, websocket.New(h.handleConnection))
}

func (h *ResultsFeedHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := withRequestContext(c)
	if _, err := h.exams.Get(ctx, examID); err != nil {
		return h.handleError(c, err)
	}

	c.Locals("exam_id", examID)
	c.Locals("request_ctx", ctx)
	return c.Next()
}

func (h *ResultsFeedHandler) handleConnection(conn *websocket.Conn) {
	examID, _ := conn.Locals("exam_id").(uint)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	logger := h.logger.With().Uint("exam_id", examID).Str("correlation_id", middleware.CorrelationIDFromContext(baseCtx)).Logger()

	events, unsubscribe := h.feed.Subscribe(examID)
	client := &feedClient{
		conn:        conn,
		events:      events,
		unsubscribe: unsubscribe,
		closed:      make(chan struct{}),
		logger:      logger,
	}

	if err := conn.WriteJSON(dto.ResultEvent{Type: dto.EventFeedSubscribed, ExamID: examID, OccurredAt: time.Now().UTC()}); err != nil {
		client.close()
		return
	}

	logger.Info().Msg("results feed connected")
	go client.writer()
	client.reader()
	logger.Info().Msg("results feed disconnected")
}

type feedClient struct {
	conn        *websocket.Conn
	events      <-chan dto.ResultEvent
	unsubscribe func()
	closed      chan struct{}
	once        sync.Once
	logger      zerolog.Logger
}

// reader only drains control frames; the feed is server-push.
func (c *feedClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logger.Debug().Err(err).Msg("results feed read loop ended")
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debug().Err(err).Msg("results feed write loop terminated")
				return
			}
		case <-time.After(resultsFeedPingInterval):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.logger.Debug().Err(err).Msg("results feed ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.unsubscribe()
		_ = c.conn.Close()
	})
}

func (h *ResultsFeedHandler) handleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrExamNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	}
	requestLogger(h.logger, c).Error().Err(err).Msg("results feed lookup failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
