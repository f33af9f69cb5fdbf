package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/clipforge/remuxd/internal/domain"
	"github.com/clipforge/remuxd/internal/workspace"
)

// Config controls fetch behavior.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// HTTPFetcher retrieves a remote resource into a workspace file with a
// single GET attempt. Retry policy is deliberately the caller's problem.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	ws        *workspace.Manager
	logger    *slog.Logger
}

// NewHTTPFetcher creates a new HTTP-based fetcher.
func NewHTTPFetcher(cfg Config, ws *workspace.Manager, logger *slog.Logger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		ws:        ws,
		logger:    logger,
	}
}

// Fetch downloads rawURL into a freshly allocated workspace file and returns
// its path. The path is returned even when the fetch fails, because ownership
// of the allocated path transfers to the caller at allocation time; the
// caller must Release it regardless of outcome.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", domain.ErrEmptyURL
	}

	dest := f.ws.Allocate(extensionHint(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return dest, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return dest, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dest, fmt.Errorf("fetch %s: unexpected status code: %d", rawURL, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return dest, fmt.Errorf("create workspace file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return dest, fmt.Errorf("write body: %w", err)
	}

	f.logger.Debug("fetched resource", "url", rawURL, "path", dest, "size", written)
	return dest, nil
}

// extensionHint opportunistically derives a file extension from the URL path.
// Any parse failure yields an empty hint, which the workspace manager maps to
// its generic extension.
func extensionHint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
