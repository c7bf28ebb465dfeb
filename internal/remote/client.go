package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/resilience"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/tracing"
)

// UserAgent is sent on every outbound request
const UserAgent = "Krill-Policyd/1.0"

// StatusError reports a non-2xx response
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// Config configures a Client
type Config struct {
	// Name labels metrics and the circuit breaker
	Name         string
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RequestsPerSecond limits outbound calls; zero means unlimited
	RequestsPerSecond float64
	// MaxResponseBytes caps a response body; zero means unlimited
	MaxResponseBytes int
	Breaker          resilience.Settings
	Metrics          *monitoring.Metrics
	Logger           *zap.Logger
}

// Client is an HTTP client with retries, rate limiting and a circuit breaker
type Client struct {
	name    string
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewClient creates a client. Retries happen in the transport, so one
// breaker call covers every attempt.
func NewClient(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = 10 * cfg.RetryWaitMin
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = leveledLogger{cfg.Logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", UserAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if cfg.MaxResponseBytes > 0 {
		restyClient.SetResponseBodyLimit(cfg.MaxResponseBytes)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.Breaker.Logger == nil {
		cfg.Breaker.Logger = cfg.Logger
	}

	return &Client{
		name:    cfg.Name,
		resty:   restyClient,
		limiter: limiter,
		breaker: resilience.New(cfg.Name, cfg.Breaker),
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Do runs one logical call. fn receives a request bound to ctx with trace
// headers set; non-2xx responses become *StatusError.
func (c *Client) Do(ctx context.Context, method string, fn func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	timer := monitoring.NewTimer(c.metrics, c.name, method)

	if err := c.limiter.Wait(ctx); err != nil {
		timer.Stop("rate_limited")
		return nil, fmt.Errorf("%s: rate limit: %w", c.name, err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req := c.resty.R().SetContext(ctx)
		tracing.Inject(ctx, req.Header)

		resp, err := fn(req)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return resp, &StatusError{Method: method, URL: resp.Request.URL, Code: resp.StatusCode()}
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		timer.Stop("open")
		return nil, fmt.Errorf("%s unavailable: %w", c.name, err)
	case err != nil:
		timer.Stop("error")
		resp, _ := out.(*resty.Response)
		return resp, err
	}

	timer.Stop("success")
	return out.(*resty.Response), nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
