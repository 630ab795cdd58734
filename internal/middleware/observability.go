package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesarge-api/internal/observability"
)

const apiPrefix = "/api/"

type requestSample struct {
	method   string
	route    string
	path     string
	status   int
	duration time.Duration
}

// Observability records request metrics and one structured log line per API call.
// Requests outside /api/ (metrics scrapes, websocket probes) are ignored.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if !strings.HasPrefix(c.Path(), apiPrefix) {
			return err
		}

		sample := requestSample{
			method:   c.Method(),
			route:    routeTemplate(c),
			path:     c.Path(),
			status:   c.Response().StatusCode(),
			duration: time.Since(start),
		}
		sample.record()
		sample.log(logger, GetCorrelationID(c), err)

		return err
	}
}

func (s requestSample) record() {
	status := strconv.Itoa(s.status)
	observability.APIRequests().WithLabelValues(s.method, s.route, status).Inc()
	observability.APILatency().WithLabelValues(s.method, s.route).Observe(s.duration.Seconds())
	if s.status >= fiber.StatusBadRequest {
		observability.APIErrors().WithLabelValues(s.method, s.route, status).Inc()
	}
}

func (s requestSample) log(logger zerolog.Logger, correlationID string, handlerErr error) {
	var event *zerolog.Event
	switch {
	case s.status >= fiber.StatusInternalServerError:
		event = logger.Error().Err(handlerErr)
	case s.status >= fiber.StatusBadRequest:
		event = logger.Warn()
	default:
		event = logger.Info()
	}

	event.
		Str("correlation_id", correlationID).
		Str("method", s.method).
		Str("route", s.route).
		Str("path", s.path).
		Int("status", s.status).
		Dur("latency", s.duration).
		Str("latency_bucket", latencyBucket(s.duration)).
		Msg("api request")
}

// routeTemplate keeps metric cardinality bounded by labelling with the
// registered route ("/api/v1/exams/:id") rather than the raw path.
func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

var latencyBounds = []struct {
	limit time.Duration
	label string
}{
	{25 * time.Millisecond, "<=25ms"},
	{50 * time.Millisecond, "<=50ms"},
	{100 * time.Millisecond, "<=100ms"},
	{250 * time.Millisecond, "<=250ms"},
	{500 * time.Millisecond, "<=500ms"},
}

func latencyBucket(duration time.Duration) string {
	for _, bound := range latencyBounds {
		if duration <= bound.limit {
			return bound.label
		}
	}
	return ">500ms"
}
