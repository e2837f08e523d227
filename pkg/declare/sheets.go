package declare

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	elerrors "github.com/vango-dev/elements/internal/errors"
	"github.com/vango-dev/elements/pkg/element"
)

// SheetFetcher loads the text of an external stylesheet.
type SheetFetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// SheetFetcherFunc adapts a function to SheetFetcher.
type SheetFetcherFunc func(ctx context.Context, ref string) (string, error)

// Fetch calls f(ctx, ref).
func (f SheetFetcherFunc) Fetch(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// InstallSheets fetches the declaration's external stylesheets, resolved
// against its base URL, and installs them ahead of its inline styles in
// declaration order.
func InstallSheets(fetcher SheetFetcher) element.Transform {
	return element.TransformFunc(func(ctx context.Context, d *element.Draft) error {
		if len(d.Declaration.Sheets) == 0 {
			return nil
		}
		sheets := make([]string, 0, len(d.Declaration.Sheets))
		for _, ref := range d.Declaration.Sheets {
			resolved, err := ResolveRef(d.Declaration.BaseURL, ref)
			if err != nil {
				return sheetError(d, ref, err)
			}
			text, err := fetcher.Fetch(ctx, resolved)
			if err != nil {
				return sheetError(d, resolved, err)
			}
			sheets = append(sheets, text)
		}
		d.Styles = append(sheets, d.Styles...)
		return nil
	})
}

func sheetError(d *element.Draft, ref string, err error) error {
	return elerrors.New("E213").
		WithElement(d.Declaration.Name).
		WithDetailf("stylesheet %q", ref).
		Wrap(err)
}

// ResolveRef resolves ref against base. An empty base leaves ref as is.
func ResolveRef(base, ref string) (string, error) {
	if base == "" {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// FileFetcher reads stylesheets from the filesystem. Relative paths are
// resolved against Root; file:// URLs are accepted.
type FileFetcher struct {
	Root string
}

// Fetch implements SheetFetcher.
func (f FileFetcher) Fetch(_ context.Context, ref string) (string, error) {
	path := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HTTPFetcher downloads stylesheets over HTTP.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements SheetFetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", ref, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SchemeFetcher dispatches on the reference's URL scheme: http and https
// go to HTTP, everything else to File.
type SchemeFetcher struct {
	HTTP SheetFetcher
	File SheetFetcher
}

// Fetch implements SheetFetcher.
func (f SchemeFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return f.HTTP.Fetch(ctx, ref)
	}
	return f.File.Fetch(ctx, ref)
}

// Default sheet cache timings.
const (
	DefaultSheetTTL        = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// CachedFetcher memoizes a SheetFetcher by resolved reference. Failed
// fetches are not cached.
type CachedFetcher struct {
	next   SheetFetcher
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewCachedFetcher wraps next with a cache holding entries for ttl.
func NewCachedFetcher(next SheetFetcher, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{
		next:   next,
		cache:  gocache.New(ttl, DefaultCleanupInterval),
		logger: logger,
	}
}

// Fetch implements SheetFetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if v, found := c.cache.Get(ref); found {
		if text, ok := v.(string); ok {
			c.logger.Debug("stylesheet cache hit", slog.String("ref", ref))
			return text, nil
		}
	}
	text, err := c.next.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(ref, text)
	return text, nil
}

// Len returns the number of cached stylesheets.
func (c *CachedFetcher) Len() int {
	return c.cache.ItemCount()
}

// Flush empties the cache.
func (c *CachedFetcher) Flush() {
	c.cache.Flush()
}

// DefaultFetcher returns a cached fetcher reading files relative to root
// and downloading http(s) references. A non-positive ttl uses
// DefaultSheetTTL.
func DefaultFetcher(root string, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultSheetTTL
	}
	return NewCachedFetcher(SchemeFetcher{
		HTTP: HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Second}},
		File: FileFetcher{Root: root},
	}, ttl, logger)
}
