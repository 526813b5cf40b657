// Package merge runs one aggregate request: fetch every source, pick the base
// document, compile the merged node list and assemble the output.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/submerge/internal/compiler"
	"github.com/John-Robertt/submerge/internal/fetch"
	"github.com/John-Robertt/submerge/internal/model"
	"github.com/John-Robertt/submerge/internal/render"
	"github.com/John-Robertt/submerge/internal/template"
)

const (
	DefaultMaxSources = 100
	DefaultMaxNodes   = 100000
	DefaultLimit      = 8
)

// Config is the deployment policy. Default* values fill request fields left
// empty; Force* filters are always conjoined with the request filters.
type Config struct {
	DefaultURL          string
	DefaultTemplate     string
	DefaultNameFilter   string
	DefaultTypeFilter   string
	DefaultServerFilter string

	ForceNameFilter   string
	ForceTypeFilter   string
	ForceServerFilter string

	CacheTTL     time.Duration
	MaxSources   int
	MaxNodes     int
	DefaultLimit int
}

// Request is one aggregate call. URLs is a comma-separated locator list. ID
// tags the run's log lines; a random one is generated when empty.
type Request struct {
	ID       string
	URLs     string
	Template string
	Name     string
	Type     string
	Server   string
	Limit    int
	NoCache  bool
}

type Result struct {
	Output  string
	Summary render.Summary
}

// Fetcher is the part of fetch.Fetcher the service needs.
type Fetcher interface {
	Fetch(ctx context.Context, kind fetch.Kind, src fetch.Source) fetch.Result
	FetchAll(ctx context.Context, kind fetch.Kind, srcs []fetch.Source) []fetch.Result
}

type Service struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for the header timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(f Fetcher, cfg Config, opts ...Option) *Service {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = DefaultMaxSources
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultMaxNodes
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	s := &Service{fetcher: f, cfg: cfg, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run never returns a partial document: either the whole output or an error.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	req = s.withDefaults(req)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := s.logger.With("run_id", req.ID)
	criteria := compiler.Criteria{
		Name:        req.Name,
		Type:        req.Type,
		Server:      req.Server,
		ForceName:   s.cfg.ForceNameFilter,
		ForceType:   s.cfg.ForceTypeFilter,
		ForceServer: s.cfg.ForceServerFilter,
	}

	locators, err := s.locators(req)
	if err != nil {
		return nil, err
	}
	opt := fetch.SourceOptions{CacheTTL: s.cfg.CacheTTL, NoCache: req.NoCache}

	var (
		base  *model.Document
		lines []render.SourceLine
	)
	if req.Template != "" {
		doc, err := template.Load(ctx, s.fetcher, req.Template, opt)
		line := render.SourceLine{Locator: req.Template, Template: true}
		if err != nil {
			line.Err = template.Reason(err)
			logger.Warn("template not loaded, falling back to first source", "template", req.Template, "err", err)
		} else {
			base = doc
		}
		lines = append(lines, line)
	}

	srcs := make([]fetch.Source, len(locators))
	for i, l := range locators {
		srcs[i] = fetch.Source{Locator: l, Options: opt}
	}
	results := s.fetcher.FetchAll(ctx, fetch.KindSource, srcs)

	var nodes []*model.Node
	for _, r := range results {
		line := render.SourceLine{Locator: displayLocator(r.Locator)}
		if !r.OK() {
			line.Err = r.Reason()
			lines = append(lines, line)
			continue
		}
		if base == nil {
			base = r.Document
		}
		line.Nodes = len(r.Document.Nodes)
		lines = append(lines, line)
		nodes = append(nodes, r.Document.Nodes...)

		if len(nodes) > s.cfg.MaxNodes {
			return nil, newBatchError("TOO_MANY_NODES",
				fmt.Sprintf("节点数量超过上限（%d）", s.cfg.MaxNodes), sourceHint(lines))
		}
	}

	if base == nil {
		return nil, newBatchError("NO_BASE_DOCUMENT", "没有可用的基础配置（所有来源与模板均失败）", sourceHint(lines))
	}
	if len(nodes) == 0 {
		return nil, newBatchError("NO_NODES", "所有来源中都没有节点", sourceHint(lines))
	}

	compiled, err := compiler.Compile(nodes, base.Groups, compiler.Options{Criteria: criteria, Logger: logger})
	if err != nil {
		return nil, &BatchError{
			AppError: model.AppError{
				Code:    codeOf(err),
				Message: messageOf(err),
				Stage:   "merge",
				Hint:    sourceHint(lines),
			},
			Cause: err,
		}
	}

	summary := render.Summary{
		Stats:       compiled.Stats,
		Criteria:    criteria,
		Sources:     lines,
		GeneratedAt: s.now(),
	}
	out, err := render.Assemble(base, compiled.Nodes, compiled.Groups, summary)
	if err != nil {
		return nil, err
	}

	logger.Info("aggregate built",
		"sources", len(locators),
		"nodes", len(compiled.Nodes),
		"original", compiled.Stats.Original,
	)
	return &Result{Output: out, Summary: summary}, nil
}

func (s *Service) withDefaults(req Request) Request {
	if req.Name == "" {
		req.Name = s.cfg.DefaultNameFilter
	}
	if req.Type == "" {
		req.Type = s.cfg.DefaultTypeFilter
	}
	if req.Server == "" {
		req.Server = s.cfg.DefaultServerFilter
	}
	if req.Template == "" {
		req.Template = s.cfg.DefaultTemplate
	}
	return req
}

// locators splits the request list. The per-request limit only trims the
// configured default list.
func (s *Service) locators(req Request) ([]string, error) {
	raw := strings.TrimSpace(req.URLs)
	fromDefault := false
	if raw == "" {
		raw = s.cfg.DefaultURL
		fromDefault = true
	}
	out := SplitLocators(raw)
	if len(out) == 0 {
		return nil, newBatchError("NO_SOURCES", "缺少 url 参数且未配置 DEFAULT_URL", "")
	}
	if fromDefault {
		limit := req.Limit
		if limit <= 0 {
			limit = s.cfg.DefaultLimit
		}
		if len(out) > limit {
			out = out[:limit]
		}
	}
	if len(out) > s.cfg.MaxSources {
		return nil, newBatchError("TOO_MANY_SOURCES",
			fmt.Sprintf("来源数量超过上限（%d > %d）", len(out), s.cfg.MaxSources), "")
	}
	return out, nil
}

// SplitLocators splits a comma-separated list, keeping "data:<meta>,<payload>"
// locators whole.
func SplitLocators(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		p := strings.TrimSpace(parts[i])
		if fetch.IsDataURI(p) && i+1 < len(parts) {
			p += "," + strings.TrimSpace(parts[i+1])
			i++
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func displayLocator(l string) string {
	if fetch.IsDataURI(l) {
		meta, _, _ := strings.Cut(l, ",")
		return meta + ",..."
	}
	return l
}

func sourceHint(lines []render.SourceLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "; ")
}
