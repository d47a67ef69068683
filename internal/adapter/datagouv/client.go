// Package datagouv downloads the raw BAAC CSV files published on
// data.gouv.fr into the local raw-data directory.
package datagouv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/nroussel/accidash/internal/observability"
)

// FetchError reports a failed download, naming the dataset at fault.
type FetchError struct {
	Dataset string
	Status  int // HTTP status, 0 for transport errors
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch dataset %q: unexpected status %d", e.Dataset, e.Status)
	}
	return fmt.Sprintf("fetch dataset %q: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Source pairs a dataset's URL with its local destination path.
type Source struct {
	URL  string
	Dest string
}

// Client fetches raw datasets over HTTP. A dataset whose destination file
// already exists is never re-downloaded (offline-first), so a completed
// acquisition keeps working without network access.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	progress   bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client; tests use this to
// inject failing or recording transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithProgress draws a progress bar on stderr while downloading.
func WithProgress() Option {
	return func(c *Client) { c.progress = true }
}

// NewClient creates a download client with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll downloads every source in order, aborting on the first failure.
// Already-present files are left untouched.
func (c *Client) FetchAll(ctx context.Context, sources map[string]Source) error {
	// Deterministic order keeps logs and failures reproducible.
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := c.Fetch(ctx, name, sources[name]); err != nil {
			return err
		}
	}
	return nil
}

// Fetch downloads one dataset to src.Dest unless the file already exists.
// The body streams into a temporary file in the destination directory which
// is renamed into place only on full success, so a failed or interrupted
// download never corrupts a previously acquired file.
func (c *Client) Fetch(ctx context.Context, dataset string, src Source) error {
	if _, err := os.Stat(src.Dest); err == nil {
		c.logger.Info("raw file present, skipping download", "dataset", dataset, "path", src.Dest)
		c.metrics.FetchCacheHit.WithLabelValues(dataset).Inc()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(src.Dest), 0o755); err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}

	start := time.Now()
	if err := c.download(ctx, dataset, src); err != nil {
		c.metrics.FetchErrors.WithLabelValues(dataset).Inc()
		return err
	}
	c.metrics.FetchDuration.WithLabelValues(dataset).Observe(time.Since(start).Seconds())

	c.logger.Info("dataset downloaded", "dataset", dataset, "path", src.Dest, "duration", time.Since(start))
	return nil
}

func (c *Client) download(ctx context.Context, dataset string, src Source) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{Dataset: dataset, Status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(src.Dest), "."+dataset+"-*.tmp")
	if err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	var w io.Writer = tmp
	if c.progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, dataset)
		w = io.MultiWriter(tmp, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}
	if err := os.Rename(tmp.Name(), src.Dest); err != nil {
		return &FetchError{Dataset: dataset, Err: err}
	}
	return nil
}
