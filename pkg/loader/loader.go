package loader

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/elements/pkg/element"
)

// DefaultConcurrency bounds concurrent document fetches.
const DefaultConcurrency = 8

// FetchTracer starts a span around one document fetch.
type FetchTracer interface {
	StartFetch(ctx context.Context, location string) (context.Context, func(error))
}

// Loader fetches declaration documents and applies them to an engine.
type Loader struct {
	engine      *element.Engine
	logger      *slog.Logger
	concurrency int
	region      string
	tracer      FetchTracer

	mu   sync.Mutex
	s3   S3API
	seen map[string]struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithConcurrency bounds concurrent fetches. Values below one keep the
// default.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithS3Client sets the client used for s3:// sources. Without one, a
// client is built from the default AWS credential chain on first use.
func WithS3Client(c S3API) Option {
	return func(l *Loader) { l.s3 = c }
}

// WithRegion sets the AWS region used when building the default client.
func WithRegion(region string) Option {
	return func(l *Loader) { l.region = region }
}

// WithFetchTracer traces each document fetch.
func WithFetchTracer(t FetchTracer) Option {
	return func(l *Loader) { l.tracer = t }
}

// New creates a Loader feeding engine.
func New(engine *element.Engine, opts ...Option) *Loader {
	l := &Loader{
		engine:      engine,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
		seen:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source resolves a source string: s3://bucket/prefix URIs read from S3,
// anything else is a file or directory path.
func (l *Loader) Source(ctx context.Context, uri string) (Source, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return FileSource{Path: uri}, nil
	}
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, unavailable(uri, err)
	}
	return S3Source{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

func (l *Loader) s3Client(ctx context.Context) (S3API, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.s3 != nil {
		return l.s3, nil
	}
	c, err := NewS3Client(ctx, l.region)
	if err != nil {
		return nil, err
	}
	l.s3 = c
	return c, nil
}

// Report summarizes a Load.
type Report struct {
	// Documents lists the applied document locations in the order they
	// were applied.
	Documents []string

	// Handles tracks every registration request the documents made.
	Handles []*element.Handle
}

// Load lists every source, fetches the documents concurrently, and
// applies each one as soon as it is decoded. Failures of individual
// sources or documents are joined into the returned error; the other
// documents are still applied.
func (l *Loader) Load(ctx context.Context, uris ...string) (*Report, error) {
	type item struct {
		src      Source
		location string
	}

	var (
		errs  []error
		items []item
	)
	for _, uri := range uris {
		src, err := l.Source(ctx, uri)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locations, err := src.List(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, loc := range locations {
			items = append(items, item{src: src, location: loc})
		}
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, it := range items {
		g.Go(func() error {
			handles, err := l.LoadDocument(gctx, it.src, it.location)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if l.Seen(it.location) {
				report.Documents = append(report.Documents, it.location)
				report.Handles = append(report.Handles, handles...)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return &report, err
	}

	l.logger.Info("declaration documents loaded",
		slog.Int("documents", len(report.Documents)),
		slog.Int("requests", len(report.Handles)),
		slog.Int("errors", len(errs)))
	return &report, errors.Join(errs...)
}

// LoadDocument fetches, decodes, and applies a single document.
func (l *Loader) LoadDocument(ctx context.Context, src Source, location string) (handles []*element.Handle, err error) {
	if l.tracer != nil {
		var end func(error)
		ctx, end = l.tracer.StartFetch(ctx, location)
		defer func() { end(err) }()
	}

	data, err := src.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(location, data)
	if err != nil {
		return nil, err
	}
	doc.BaseURL = src.BaseURL(location)

	l.mu.Lock()
	l.seen[location] = struct{}{}
	l.mu.Unlock()

	return l.Apply(ctx, doc)
}

// Apply feeds a decoded document to the engine as a single task:
// element declarations first, then script definitions.
func (l *Loader) Apply(ctx context.Context, doc *Document) ([]*element.Handle, error) {
	var handles []*element.Handle
	err := l.engine.Batch(ctx, func(tx *element.Tx) error {
		var errs []error
		for _, e := range doc.Elements {
			h, err := tx.RequestRegistration(e.Declaration(doc.BaseURL))
			if h != nil {
				handles = append(handles, h)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
		for _, s := range doc.Scripts {
			if err := tx.Define(s.Name, s.Definition()); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	l.logger.Debug("document applied",
		slog.String("location", doc.Location),
		slog.Int("elements", len(doc.Elements)),
		slog.Int("scripts", len(doc.Scripts)))
	return handles, err
}

// Seen reports whether the document at location has been applied.
func (l *Loader) Seen(location string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[location]
	return ok
}
