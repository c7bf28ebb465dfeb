package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/resilience"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
)

// ClearRequest is the body POSTed to the clear hook
type ClearRequest struct {
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// ClearHook asks the browser shell to wipe browsing data. It implements
// engine.Clearer.
type ClearHook struct {
	url    string
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClearHook creates a hook posting to url
func NewClearHook(url string, metrics *monitoring.Metrics, logger *zap.Logger) *ClearHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearHook{
		url: url,
		client: NewClient(Config{
			Name:         "clear_hook",
			Timeout:      5 * time.Second,
			Retries:      2,
			RetryWaitMin: 100 * time.Millisecond,
			Breaker:      resilience.HookSettings(logger),
			Metrics:      metrics,
			Logger:       logger,
		}),
		logger: logger,
		now:    time.Now,
	}
}

// Clear posts the instruction and waits for a 2xx answer
func (h *ClearHook) Clear(ctx context.Context, reason engine.ClearReason) error {
	body := ClearRequest{
		RequestID:   uuid.NewString(),
		Reason:      string(reason),
		RequestedAt: h.now().UTC(),
	}

	_, err := h.client.Do(ctx, http.MethodPost, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("X-Request-ID", body.RequestID).
			SetBody(body).
			Post(h.url)
	})
	if err != nil {
		h.logger.Warn("clear hook failed",
			zap.String("request_id", body.RequestID),
			zap.String("reason", body.Reason),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("clear hook delivered",
		zap.String("request_id", body.RequestID),
		zap.String("reason", body.Reason),
	)
	return nil
}
