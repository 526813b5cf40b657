package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/submerge/internal/cache"
	"github.com/John-Robertt/submerge/internal/ingest"
	"github.com/John-Robertt/submerge/internal/model"
)

// Source is one locator plus its per-request cache options. The options take
// part in the cache key.
type Source struct {
	Locator string
	Options SourceOptions
}

type SourceOptions struct {
	CacheTTL time.Duration `json:"cacheTtl,omitempty"`
	NoCache  bool          `json:"noCache,omitempty"`
}

// Result is the outcome of fetching and parsing one source. Exactly one of
// Document and Err is set.
type Result struct {
	Locator  string
	Document *model.Document
	Strategy string
	Err      error
	Cached   bool
}

func (r Result) OK() bool { return r.Err == nil && r.Document != nil }

// Reason is the diagnostic text for a failed result.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(r.Err, &fe) {
		return fe.Reason()
	}
	var pe *ingest.ParseError
	if errors.As(r.Err, &pe) {
		return pe.AppError.Message
	}
	return r.Err.Error()
}

// TTLPolicy decides how long an outcome stays cached.
type TTLPolicy struct {
	Success   time.Duration
	Retryable time.Duration
	Failure   time.Duration
}

var DefaultTTLPolicy = TTLPolicy{
	Success:   1800 * time.Second,
	Retryable: 60 * time.Second,
	Failure:   300 * time.Second,
}

// For returns the TTL for an outcome. override replaces the success TTL when
// positive.
func (p TTLPolicy) For(err error, override time.Duration) time.Duration {
	if err == nil {
		if override > 0 {
			return override
		}
		return p.Success
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Retryable() {
		return p.Retryable
	}
	return p.Failure
}

// Fetcher resolves sources to documents. It is safe for concurrent use;
// concurrent requests for the same cache key share one retrieval.
type Fetcher struct {
	cache   *cache.TTL[Result]
	group   singleflight.Group
	policy  TTLPolicy
	http    Options
	logger  *slog.Logger
	metrics *fetchMetrics
}

type Option func(*Fetcher)

func WithTTLPolicy(p TTLPolicy) Option { return func(f *Fetcher) { f.policy = p } }

func WithHTTPOptions(o Options) Option { return func(f *Fetcher) { f.http = o } }

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics counts outcomes by result. A nil registerer disables metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(f *Fetcher) {
		if reg == nil {
			return
		}
		m, err := newFetchMetrics(reg)
		if err != nil {
			f.logger.Warn("fetch metrics disabled", "err", err)
			return
		}
		f.metrics = m
	}
}

// New builds a Fetcher around c. A nil cache disables caching.
func New(c *cache.TTL[Result], opts ...Option) *Fetcher {
	f := &Fetcher{
		cache:  c,
		policy: DefaultTTLPolicy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// CacheKey combines the locator with the serialized options.
func CacheKey(src Source) string {
	b, err := json.Marshal(src.Options)
	if err != nil {
		return src.Locator
	}
	return src.Locator + ":" + string(b)
}

// Fetch never fails: retrieval and parse failures are reported in Result.Err.
// The returned document is the caller's own copy.
func (f *Fetcher) Fetch(ctx context.Context, kind Kind, src Source) Result {
	key := CacheKey(src)
	useCache := f.cache != nil && !src.Options.NoCache && !IsDataURI(src.Locator)

	if useCache {
		defer f.cache.MaybeSweep()
		if r, ok := f.cache.Get(key); ok {
			f.metrics.observe("cache_hit")
			f.logger.Debug("source served from cache", "source", redact(src.Locator))
			return own(r, true)
		}
	}

	// The shared retrieval outlives any one caller; the client timeout
	// bounds it.
	ch := f.group.DoChan(key, func() (any, error) {
		r := f.retrieve(context.WithoutCancel(ctx), kind, src.Locator)
		if useCache && !errors.Is(r.Err, context.Canceled) {
			f.cache.Set(key, r, f.policy.For(r.Err, src.Options.CacheTTL))
		}
		return r, nil
	})
	var r Result
	select {
	case res := <-ch:
		r = res.Val.(Result)
	case <-ctx.Done():
		r = Result{Locator: src.Locator, Err: abandonedError(kind.stage(), src.Locator, ctx.Err())}
	}
	if r.Err != nil {
		f.metrics.observe("error")
	} else {
		f.metrics.observe("ok")
	}
	return own(r, false)
}

// FetchAll fetches every source concurrently and returns the results in
// input order. One failing source never affects the others.
func (f *Fetcher) FetchAll(ctx context.Context, kind Kind, srcs []Source) []Result {
	out := make([]Result, len(srcs))
	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() error {
			out[i] = f.Fetch(ctx, kind, src)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *Fetcher) retrieve(ctx context.Context, kind Kind, locator string) Result {
	started := time.Now()
	var (
		text string
		err  error
	)
	if IsDataURI(locator) {
		text, err = DecodeDataURI(kind, locator)
	} else {
		text, err = FetchTextWithOptions(ctx, kind, locator, f.http)
	}
	if err != nil {
		f.logger.Warn("source fetch failed",
			"source", redact(locator),
			"elapsed", time.Since(started),
			"err", err,
		)
		return Result{Locator: locator, Err: err}
	}

	parsed, err := ingest.Parse(text, f.logger)
	if err != nil {
		f.logger.Warn("source not parseable", "source", redact(locator), "err", err)
		return Result{Locator: locator, Err: err}
	}
	f.logger.Info("source fetched",
		"source", redact(locator),
		"strategy", parsed.Strategy,
		"nodes", len(parsed.Document.Nodes),
		"elapsed", time.Since(started),
	)
	return Result{Locator: locator, Document: parsed.Document, Strategy: parsed.Strategy}
}

// own hands out a private copy so callers may mutate nodes freely.
func own(r Result, cached bool) Result {
	r.Document = r.Document.Clone()
	r.Cached = cached
	return r
}

// redact keeps logs free of tokens carried in the query string.
func redact(locator string) string {
	if IsDataURI(locator) {
		return truncate(locator, 24)
	}
	if i := strings.IndexByte(locator, '?'); i >= 0 {
		return locator[:i] + "?..."
	}
	return locator
}
