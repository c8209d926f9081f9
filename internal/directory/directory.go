// Package directory resolves dataset identifiers to the email address of the
// dataset's owner through the dataset metadata service.
//
// A lookup never fails the caller for remote problems. Connection errors,
// timeouts, non-2xx statuses and malformed bodies are logged and reported as
// "no owner", the same as a dataset without a contact record. Only a
// non-canonical identifier, which is a caller bug, returns an error.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
	"github.com/gdex-tools/datahelp-router/internal/metrics"
)

// IDPlaceholder marks where the dataset id goes in the lookup URL.
const IDPlaceholder = "{id}"

const maxBodyBytes = 1 << 20

// Options configures a Client.
type Options struct {
	// URL is the lookup endpoint. "{id}" is replaced by the dataset id;
	// without a placeholder the id is appended as a path segment.
	URL string

	// Timeout for one lookup (default 30s).
	Timeout time.Duration

	// RateLimit in lookups per second; zero disables limiting.
	RateLimit float64

	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

// Client looks up dataset owners.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// New creates a directory client.
func New(opts Options, log *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:        opts.URL,
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		limiter:    limiter,
		log:        log.Named("directory"),
	}
}

type lookupResponse struct {
	Data []struct {
		Email *string `json:"email"`
	} `json:"data"`
}

// Resolve returns the owner email of a dataset. ok is false when the dataset
// has no owner record or the lookup failed.
func (c *Client) Resolve(ctx context.Context, id dataset.ID) (string, bool, error) {
	if !id.Valid() {
		return "", false, fmt.Errorf("resolving owner: %w: %q", dataset.ErrInvalidID, string(id))
	}

	start := time.Now()
	owner, result := c.lookup(ctx, id)
	metrics.DirectoryLookupDuration.WithLabelValues(result).Observe(float64(time.Since(start).Milliseconds()))

	return owner, owner != "", nil
}

func (c *Client) lookup(ctx context.Context, id dataset.ID) (string, string) {
	log := c.log.With(zap.String("dataset", id.String()))

	if err := c.limiter.Wait(ctx); err != nil {
		log.Warn("directory lookup not attempted", zap.Error(err))
		return "", "error"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.lookupURL(id), nil)
	if err != nil {
		log.Warn("building directory request", zap.Error(err))
		return "", "error"
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("directory lookup failed", zap.Error(err))
		return "", "error"
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("directory lookup returned non-success status", zap.Int("status", resp.StatusCode))
		return "", "error"
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		log.Warn("directory returned malformed body", zap.Error(err))
		return "", "error"
	}

	if len(body.Data) == 0 || body.Data[0].Email == nil {
		log.Debug("no owner record")
		return "", "not_found"
	}
	owner := strings.TrimSpace(*body.Data[0].Email)
	if owner == "" {
		log.Debug("owner record has no email")
		return "", "not_found"
	}
	if len(body.Data) > 1 {
		log.Debug("multiple owner records, using the first", zap.Int("records", len(body.Data)))
	}
	return owner, "found"
}

func (c *Client) lookupURL(id dataset.ID) string {
	escaped := url.PathEscape(id.String())
	if strings.Contains(c.url, IDPlaceholder) {
		return strings.ReplaceAll(c.url, IDPlaceholder, escaped)
	}
	return strings.TrimRight(c.url, "/") + "/" + escaped
}
