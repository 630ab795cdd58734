package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID carries the request correlation id in and out of the API.
const HeaderCorrelationID = "X-Correlation-ID"

const (
	headerRequestID      = "X-Request-ID"
	correlationLocal     = "correlation_id"
	maxCorrelationLength = 128
)

type correlationCtxKey struct{}

// CorrelationID reuses the caller's X-Correlation-ID (or X-Request-ID) and
// mints a UUID otherwise. The id is echoed back and bound to the user context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := incomingCorrelationID(c)

		c.Locals(correlationLocal, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

func incomingCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{HeaderCorrelationID, headerRequestID} {
		if value := normaliseCorrelationID(c.Get(header)); value != "" {
			return value
		}
	}
	return uuid.NewString()
}

func normaliseCorrelationID(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > maxCorrelationLength {
		value = value[:maxCorrelationLength]
	}
	return value
}

// CorrelationIDFromContext returns the id bound by ContextWithCorrelation, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation id of the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation binds a correlation id to ctx. Blank ids leave ctx untouched.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = normaliseCorrelationID(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationCtxKey{}, correlationID)
}
