// Package engine composes evidence collection, retention evaluation, and
// dependency-ordered destructive execution into the full retirement
// pipeline: discover, decide, execute, report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/cloudreaper/pkg/config"
	"github.com/DrSkyle/cloudreaper/pkg/confirm"
	"github.com/DrSkyle/cloudreaper/pkg/engine/depgraph"
	"github.com/DrSkyle/cloudreaper/pkg/engine/evidence"
	"github.com/DrSkyle/cloudreaper/pkg/engine/executor"
	"github.com/DrSkyle/cloudreaper/pkg/engine/policy"
	"github.com/DrSkyle/cloudreaper/pkg/engine/report"
	"github.com/DrSkyle/cloudreaper/pkg/engine/swarm"
	"github.com/DrSkyle/cloudreaper/pkg/engine/tracker"
	"github.com/DrSkyle/cloudreaper/pkg/provider"
	"github.com/DrSkyle/cloudreaper/pkg/resource"
	"github.com/DrSkyle/cloudreaper/pkg/telemetry"
	"github.com/DrSkyle/cloudreaper/pkg/version"
)

// ErrPartialResult indicates the run completed but some evidence sources
// were unavailable, so part of the candidate set could not be judged.
var ErrPartialResult = errors.New("run completed with partial evidence")

// ErrRunAborted indicates a provider panicked mid-run. The report returned
// alongside it covers only the work finished before the crash.
var ErrRunAborted = errors.New("run aborted by panic")

// Config holds engine settings.
type Config struct {
	Settings config.Settings

	// StrictMode forces a non-zero outcome on partial evidence.
	StrictMode bool

	// RulesFile points at an optional YAML file of CEL protection rules.
	RulesFile string

	JsonLogs      bool
	Verbose       bool
	OtelEndpoint  string
	SkipTelemetry bool

	// Dependencies.
	Logger *slog.Logger
}

// Engine is the runtime core.
type Engine struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Pool    *swarm.Pool
	Confirm confirm.Port

	config    Config
	evaluator *policy.Evaluator
	now       func() time.Time
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine with safe defaults: dry run on, confirmation
// declined unless a port is injected.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Tracer:  otel.Tracer("cloudreaper/engine"),
		Confirm: confirm.Auto(false),
		now:     time.Now,
		config:  Config{Settings: config.DefaultSettings()},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.Logger == nil {
		if e.config.JsonLogs {
			e.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				ReplaceAttr: redactSensitiveData,
			}))
		} else {
			e.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
		}
	}
	slog.SetDefault(e.Logger)

	if e.Pool == nil {
		e.Pool = swarm.NewPool(e.config.Settings.ConcurrencyLimit)
	}

	var evaluator policy.Evaluator
	evaluator.Policy = policy.Policy{
		MinAgeDays:            e.config.Settings.MinAgeDays,
		UnusedThresholdDays:   e.config.Settings.UnusedThresholdDays,
		ProtectedNamePatterns: e.config.Settings.ProtectedNamePatterns,
	}
	evaluator.Now = e.now
	if e.config.RulesFile != "" {
		guard, err := policy.LoadRuleFile(e.config.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("loading rules file: %w", err)
		}
		evaluator.Rules = guard
	}
	e.evaluator = &evaluator

	if !e.config.SkipTelemetry {
		if _, err := telemetry.Init(ctx, version.AppName, version.Current, e.config.OtelEndpoint); err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		}
	}

	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

// WithConfig sets raw config.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
	}
}

// WithConfirmer injects the confirmation port.
func WithConfirmer(c confirm.Port) Option {
	return func(e *Engine) { e.Confirm = c }
}

// WithPool injects a shared worker pool.
func WithPool(p *swarm.Pool) Option {
	return func(e *Engine) { e.Pool = p }
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Run executes the full pipeline against one resource domain and returns the
// report. The report always enumerates every candidate's verdict and every
// attempted action; nothing is silently dropped.
func (e *Engine) Run(ctx context.Context, p provider.ResourceProvider, preset config.DomainPreset) (rep *report.Report, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Run",
		trace.WithAttributes(attribute.String("domain", p.Domain())))
	defer span.End()
	defer e.recoverPanic(ctx, &err)

	settings := e.config.Settings
	e.Logger.Info("Starting retirement run",
		"domain", p.Domain(), "dry_run", settings.DryRun,
		"concurrency", settings.ConcurrencyLimit)

	rep = &report.Report{
		Domain:      p.Domain(),
		GeneratedAt: e.now(),
		DryRun:      settings.DryRun,
	}

	// Phase 1: discovery. A partial candidate list would silently shrink
	// the report, so discovery failure is fatal for the run.
	candidates, err := p.ListCandidates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("discovering candidates in %s: %w", p.Domain(), err)
	}
	e.Logger.Info("Discovered candidates", "domain", p.Domain(), "count", len(candidates))
	if len(candidates) == 0 {
		return rep, nil
	}

	// Phase 2: evidence collection, sources fanned out in parallel.
	evs := e.collectEvidence(ctx, p, preset, candidates)

	// Phase 3: aggregate and evaluate. Pure per-resource work.
	byID := make(map[string][]evidence.UsageEvidence)
	for _, ev := range evs {
		byID[ev.ResourceID] = append(byID[ev.ResourceID], ev)
	}

	var eligible []resource.Resource
	for _, r := range candidates {
		usage := evidence.Aggregate(r.ID, byID[r.ID])
		if usage.Completeness == evidence.CompletenessUnavailable {
			rep.Partial = true
		}
		v := e.evaluator.Evaluate(r, usage)
		rep.Verdicts = append(rep.Verdicts, v)
		if v.Eligible {
			eligible = append(eligible, r)
		}
	}
	e.Logger.Info("Evaluation complete",
		"candidates", len(candidates), "eligible", len(eligible), "partial", rep.Partial)

	if rep.Partial {
		span.SetAttributes(attribute.Bool("scan.partial", true))
	}

	// Phase 4: execution.
	if len(eligible) > 0 {
		e.executeEligible(ctx, p, preset, eligible, rep)
	}

	if rep.Partial && e.config.StrictMode {
		e.Logger.Error("Strict mode: failing due to partial evidence")
		return rep, ErrPartialResult
	}
	return rep, nil
}

// collectEvidence fans the evidence sources out as bounded parallel tasks
// and merges their records.
func (e *Engine) collectEvidence(ctx context.Context, p provider.ResourceProvider, preset config.DomainPreset, candidates []resource.Resource) []evidence.UsageEvidence {
	ctx, span := e.Tracer.Start(ctx, "Engine.CollectEvidence")
	defer span.End()

	settings := e.config.Settings

	var mu sync.Mutex
	var evs []evidence.UsageEvidence
	add := func(batch []evidence.UsageEvidence) {
		mu.Lock()
		evs = append(evs, batch...)
		mu.Unlock()
	}

	e.Pool.Go(ctx, func(ctx context.Context) error {
		live := &evidence.LiveScanner{Refs: p, Logger: e.Logger}
		add(live.Collect(ctx, candidates))
		return nil
	})

	e.Pool.Go(ctx, func(ctx context.Context) error {
		if !settings.CheckHistoricalUsage {
			add(evidence.SkippedHistorical(candidates))
			return nil
		}
		hist := &evidence.HistoricalScanner{
			Source:     p,
			EventNames: preset.ActivityEvents,
			CheckDays:  settings.CheckDays,
			Logger:     e.Logger,
		}
		add(hist.Collect(ctx, e.now(), candidates))
		return nil
	})

	e.Pool.Wait()
	return evs
}

// executeEligible confirms the batch once (dry runs skip the prompt), then
// resolves and executes each subtree. Independent subtrees run concurrently
// under the pool limit; inside one subtree execution stays serialized.
func (e *Engine) executeEligible(ctx context.Context, p provider.ResourceProvider, preset config.DomainPreset, eligible []resource.Resource, rep *report.Report) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Execute",
		trace.WithAttributes(attribute.Int("eligible", len(eligible))))
	defer span.End()

	settings := e.config.Settings

	// A dry run issues no mutating call, so there is nothing to gate on
	// the operator; the would-delete records are the whole point.
	if !settings.DryRun {
		ok, err := e.Confirm.Confirm(fmt.Sprintf("Retire %d %s resource(s)", len(eligible), p.Domain()))
		if err != nil || !ok {
			for _, r := range eligible {
				rep.Executions = append(rep.Executions, executor.Record{
					ResourceID: r.ID,
					Type:       r.Type,
					Action:     executor.ActionSkipped,
					DryRun:     false,
					Timestamp:  e.now(),
					Detail:     "operator declined",
				})
			}
			return
		}
	}

	terminal := provider.NewTerminalStates(preset.SuccessStates, preset.FailureStates)
	if st, ok := p.(provider.StateTracker); ok {
		terminal = st.TerminalStates()
	}

	resolver := &depgraph.Resolver{Deps: p}
	var mu sync.Mutex

	for _, r := range eligible {
		root := r
		e.Pool.Go(ctx, func(ctx context.Context) error {
			records := e.executeSubtree(ctx, p, resolver, terminal, root)
			mu.Lock()
			rep.Executions = append(rep.Executions, records...)
			mu.Unlock()
			return nil
		})
	}
	e.Pool.Wait()
}

func (e *Engine) executeSubtree(ctx context.Context, p provider.ResourceProvider, resolver *depgraph.Resolver, terminal provider.TerminalStates, root resource.Resource) []executor.Record {
	settings := e.config.Settings

	plan, err := resolver.Resolve(ctx, root)
	if err != nil {
		// Structural failures are fatal for this subtree only; siblings
		// keep going.
		e.Logger.Error("dependency resolution failed",
			"resource", root.ID, "error", err)
		return []executor.Record{{
			ResourceID: root.ID,
			Type:       root.Type,
			Action:     executor.ActionFailed,
			DryRun:     settings.DryRun,
			Timestamp:  e.now(),
			Detail:     fmt.Sprintf("dependency resolution: %v", err),
		}}
	}

	exec := &executor.Executor{
		Deleter: p,
		Tracker: &tracker.Tracker{
			States:       p,
			Terminal:     terminal,
			PollInterval: settings.PollInterval,
			MaxWait:      settings.MaxWaitDuration,
			Logger:       e.Logger,
		},
		Logger: e.Logger,
		DryRun: settings.DryRun,
		Now:    e.now,
	}
	return exec.Execute(ctx, plan)
}

// recoverPanic keeps a crashing provider from taking down the embedding app.
// The caller's error return is replaced so the crash is never reported as a
// clean run.
func (e *Engine) recoverPanic(ctx context.Context, errp *error) {
	if r := recover(); r != nil {
		tr := otel.Tracer("cloudreaper/engine")
		_, span := tr.Start(ctx, "CriticalPanic")

		stack := debug.Stack()
		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.stack", string(stack)),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
		*errp = fmt.Errorf("%w: %v", ErrRunAborted, r)
	}
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "private_key": true, "auth_token": true,
		"refresh_token": true, "certificate": true, "signature": true,
		"credential": true, "ssh_key": true, "connection_string": true,
	}

	if sensitiveKeys[a.Key] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
