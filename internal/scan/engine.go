package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/vulnscan/internal/config"
	"github.com/dshills/vulnscan/internal/providers"
)

const (
	toolName    = "vulnscan"
	toolVersion = "0.1.0"
)

// Failure stages recorded in ChunkFailure.
const (
	stageInference = "inference"
	stageParse     = "parse"
)

// Version returns the tool version.
func Version() string { return toolVersion }

// Scanner scans source files for vulnerabilities. Construct once per
// configuration; Scan may be called repeatedly.
type Scanner struct {
	client   providers.Client
	cfg      config.Config
	logger   hclog.Logger
	observer Observer
	cache    ResponseCache
	rules    *Rules
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l hclog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithObserver receives an event per inference attempt. The default logs at
// debug/warn level.
func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.observer = o }
}

// WithCache enables the response cache.
func WithCache(c ResponseCache) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithRules applies a rules pack.
func WithRules(r *Rules) Option {
	return func(s *Scanner) { s.rules = r }
}

// New creates a Scanner. The config is validated; a nil client or an invalid
// config is a FatalError.
func New(client providers.Client, cfg config.Config, opts ...Option) (*Scanner, error) {
	if client == nil {
		return nil, &providers.FatalError{Op: "creating scanner", Err: errors.New("no inference client")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &providers.FatalError{Op: "creating scanner", Err: err}
	}
	s := &Scanner{client: client, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	if s.observer == nil {
		s.observer = logObserver{logger: s.logger.Named("inference")}
	}
	return s, nil
}

// Scan analyzes files and returns the aggregated report. Per-chunk failures
// are absorbed into the report stats; the error is non-nil only for fatal
// provider errors and context cancellation, in which case no report is
// returned.
func (s *Scanner) Scan(ctx context.Context, files []SourceFile, meta Metadata) (*Report, error) {
	started := time.Now()

	lanes, skipped := s.plan(files)
	chunks := 0
	for _, l := range lanes {
		chunks += len(l.chunks)
	}
	s.logger.Info("starting scan", "files", len(lanes), "chunks", chunks, "concurrency", s.cfg.Concurrency)

	policy := providers.RetryPolicy{
		MaxAttempts: s.cfg.Retry.MaxAttempts,
		BaseDelay:   s.cfg.Retry.BaseDelay(),
		MaxDelay:    s.cfg.Retry.MaxDelay(),
	}
	ic := &InferenceClient{
		client:      s.client,
		model:       s.cfg.Model,
		policy:      policy,
		timeout:     s.cfg.RequestTimeout(),
		limiter:     newLimiter(s.cfg.RequestsPerMinute),
		observer:    s.observer,
		cache:       s.cache,
		logger:      s.logger.Named("inference"),
		maxTokens:   s.cfg.MaxTokens,
		temperature: s.cfg.Temperature,
	}
	resolver := NewResolver(s.logger.Named("resolver"))

	sched := &scheduler{
		concurrency: s.cfg.Concurrency,
		logger:      s.logger.Named("scheduler"),
		run: func(ctx context.Context, t task) outcome {
			return s.analyze(ctx, ic, resolver, t)
		},
	}
	if err := sched.Run(ctx, lanes); err != nil {
		return nil, err
	}

	findings, stats, failures, llmMs := collect(lanes, s.rules)
	stats.Files = len(lanes)
	stats.SkippedFiles = skipped
	stats.Chunks = chunks

	report := &Report{
		Tool:           toolName,
		Version:        toolVersion,
		RunID:          uuid.NewString(),
		RepositoryName: meta.RepositoryName,
		Provider:       s.client.Name(),
		Model:          s.cfg.Model,
		Issues:         findings,
		Summary:        ComputeSummary(findings),
		Stats:          stats,
		Failures:       failures,
		Timing: Timing{
			LLMMs:   llmMs,
			TotalMs: time.Since(started).Milliseconds(),
		},
	}
	if !meta.ScanDate.IsZero() {
		report.ScanDate = meta.ScanDate.UTC().Format(time.RFC3339)
	}

	s.logger.Info("scan complete", "issues", len(findings), "chunks_failed", stats.ChunksFailed, "fallback_parses", stats.FallbackParses)
	return report, nil
}

// plan builds one lane per non-empty file in dispatch order: files above the
// large-file threshold first, each group in input order.
func (s *Scanner) plan(files []SourceFile) ([]*lane, int) {
	opts := ChunkOptions{MaxSize: s.cfg.ChunkSize, Overlap: s.cfg.ChunkOverlap}

	var (
		lanes   []*lane
		skipped int
	)
	for _, f := range files {
		if strings.TrimSpace(f.Contents) == "" {
			s.logger.Debug("skipping empty file", "file", f.Path)
			skipped++
			continue
		}
		lanes = append(lanes, &lane{
			file:   f,
			chunks: ChunkFile(f, opts),
			large:  f.LineCount() > s.cfg.LargeFileLines,
		})
	}
	sort.SliceStable(lanes, func(i, j int) bool {
		return lanes[i].large && !lanes[j].large
	})
	for i, l := range lanes {
		l.seq = i
		if l.large {
			s.logger.Debug("large file", "file", l.file.Path, "lines", l.file.LineCount(), "chunks", len(l.chunks))
		}
	}
	return lanes, skipped
}

// analyze runs one chunk through prompt, inference, resolution and line
// placement.
func (s *Scanner) analyze(ctx context.Context, ic *InferenceClient, resolver *Resolver, t task) outcome {
	c := t.lane.chunks[t.chunk]
	out := outcome{task: t}

	started := time.Now()
	completion, err := ic.Call(ctx, c, BuildPrompt(c, s.rules))
	out.result.llmMs = time.Since(started).Milliseconds()
	out.result.cached = completion.Cached
	out.result.attempts = completion.Attempts

	if err != nil {
		out.result.failure = &ChunkFailure{
			File:  c.File,
			Chunk: c.Index,
			Stage: stageInference,
			Error: err.Error(),
		}
		if providers.IsFatal(err) {
			out.fatal = err
			return out
		}
		s.logger.Warn("chunk failed after retries", "file", c.File, "chunk", c.Index+1, "attempts", completion.Attempts, "error", err)
		return out
	}

	res := resolver.Resolve(completion.Text, c.File)
	out.result.fallback = res.Fallback
	if res.Fallback && len(res.Findings) == 0 {
		out.result.failure = &ChunkFailure{
			File:  c.File,
			Chunk: c.Index,
			Stage: stageParse,
			Error: fmt.Sprintf("no findings recovered: %v", res.Err),
		}
	}
	for i := range res.Findings {
		placeLine(&res.Findings[i], t.lane.file)
	}
	out.result.findings = res.Findings
	return out
}
