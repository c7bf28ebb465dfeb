package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/resilience"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/blocklist"
)

// ErrNotText is returned for feeds that are not plain text
var ErrNotText = errors.New("feed is not a text list")

// maxFeedBytes caps a feed body, before and after decompression
const maxFeedBytes = 64 << 20

// FeedConfig configures a FeedLoader
type FeedConfig struct {
	URLs         []string
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	// MaxBytes caps a feed body; zero selects 64 MiB
	MaxBytes int
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// FeedResult is the outcome of one feed
type FeedResult struct {
	URL     string
	Domains int
	Err     error
}

// FeedLoader downloads hosts-format or plain domain lists
type FeedLoader struct {
	urls     []string
	maxBytes int
	client   *Client
	logger   *zap.Logger
}

// NewFeedLoader creates a loader for cfg.URLs
func NewFeedLoader(cfg FeedConfig) *FeedLoader {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = maxFeedBytes
	}
	return &FeedLoader{
		urls:     append([]string(nil), cfg.URLs...),
		maxBytes: cfg.MaxBytes,
		client: NewClient(Config{
			Name:              "feeds",
			Timeout:           cfg.Timeout,
			Retries:           cfg.Retries,
			RetryWaitMin:      cfg.RetryWaitMin,
			RequestsPerSecond: 5,
			MaxResponseBytes:  cfg.MaxBytes,
			Breaker:           resilience.FeedSettings(cfg.Logger),
			Metrics:           cfg.Metrics,
			Logger:            cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// Fetch downloads and parses one feed
func (l *FeedLoader) Fetch(ctx context.Context, url string) ([]string, error) {
	resp, err := l.client.Do(ctx, http.MethodGet, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Accept", "text/plain").Get(url)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}

	body := resp.Body()
	if len(body) > 0 {
		mtype := mimetype.Detect(body)
		if mtype.Is("application/gzip") {
			if body, err = gunzip(body, l.maxBytes); err != nil {
				return nil, fmt.Errorf("decompress feed %s: %w", url, err)
			}
			mtype = mimetype.Detect(body)
		}
		if len(body) > 0 && !isTextList(mtype) {
			return nil, fmt.Errorf("fetch feed %s: %w (%s)", url, ErrNotText, mtype.String())
		}
	}

	domains, err := blocklist.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	return domains, nil
}

// LoadAll fetches every feed in order. Failing feeds are logged and
// skipped; the returned error joins all failures.
func (l *FeedLoader) LoadAll(ctx context.Context) ([]string, []FeedResult, error) {
	var (
		all     []string
		results = make([]FeedResult, 0, len(l.urls))
		errs    []error
	)

	for _, url := range l.urls {
		domains, err := l.Fetch(ctx, url)
		results = append(results, FeedResult{URL: url, Domains: len(domains), Err: err})
		if err != nil {
			l.logger.Warn("blocklist feed skipped", zap.String("url", url), zap.Error(err))
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		l.logger.Info("blocklist feed loaded", zap.String("url", url), zap.Int("domains", len(domains)))
		all = append(all, domains...)
	}

	return all, results, errors.Join(errs...)
}

// gunzip inflates a compressed list such as hosts.gz. Mirrors serve these
// as application/gzip, which the transport does not decode.
func gunzip(data []byte, limit int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		return nil, fmt.Errorf("feed exceeds %d bytes", limit)
	}
	return out, nil
}

// isTextList accepts text/plain and its descendants (csv, tsv) but not
// markup, which usually means an error page.
func isTextList(mtype *mimetype.MIME) bool {
	if mtype.Is("text/html") || mtype.Is("text/xml") {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
