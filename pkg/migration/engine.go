// Package migration moves the files of space tokens between a flat and a
// per-token directory layout.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/internal/ratelimiter"
	"github.com/marmos91/tokenmig/pkg/catalog"
	"github.com/marmos91/tokenmig/pkg/metrics"
	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/marmos91/tokenmig/pkg/progress"
	"github.com/marmos91/tokenmig/pkg/resolver"
)

// Config describes one migration.
type Config struct {
	// Source is the root the files currently live under
	Source string

	// Destination is the root of the new layout. Missing directories are
	// only ever created strictly below it.
	Destination string

	// Owner, Group and DirMode apply to created directories
	Owner   uint32
	Group   uint32
	DirMode uint32

	Direction Direction

	// CacheSize bounds each resolver's cache (resolver.DefaultCapacity when 0)
	CacheSize int

	// MaxRate caps migrated files per second, 0 for no cap
	MaxRate uint
}

// Engine runs a migration. It owns a strict resolver for the source tree and
// a creating resolver for the destination tree; both caches live for the
// whole run.
//
// An Engine is single-threaded: records are processed strictly in sequence.
type Engine struct {
	store   namespace.Store
	catalog catalog.Catalog
	cfg     Config

	progress *progress.Reporter
	metrics  metrics.MigrationMetrics

	source      *resolver.Resolver
	destination *resolver.Resolver

	limiter *ratelimiter.RateLimiter
}

// Option customizes an Engine.
type Option func(*Engine)

// WithProgress sets the progress reporter (output is discarded by default).
func WithProgress(r *progress.Reporter) Option {
	return func(e *Engine) {
		e.progress = r
	}
}

// WithMetrics sets the metrics sink (no-op by default).
func WithMetrics(m metrics.MigrationMetrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine validates cfg and creates an engine.
func NewEngine(store namespace.Store, cat catalog.Catalog, cfg Config, opts ...Option) (*Engine, error) {
	source, err := namespace.CleanPath(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}
	destination, err := namespace.CleanPath(cfg.Destination)
	if err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}
	if source == destination {
		return nil, fmt.Errorf("source and destination are both %s", source)
	}
	cfg.Source = source
	cfg.Destination = destination
	if cfg.DirMode == 0 {
		cfg.DirMode = namespace.DirMode
	}

	e := &Engine{
		store:    store,
		catalog:  cat,
		cfg:      cfg,
		progress: progress.NewReporterWithSpinner(io.Discard, false),
		metrics:  metrics.NewNoopMigrationMetrics(),
		source: resolver.New(store, resolver.Config{
			Mode:     resolver.Strict,
			Capacity: cfg.CacheSize,
		}),
		destination: resolver.New(store, resolver.Config{
			Mode:     resolver.Creating,
			Capacity: cfg.CacheSize,
			Boundary: destination,
			Owner:    cfg.Owner,
			Group:    cfg.Group,
			DirMode:  cfg.DirMode,
		}),
		limiter: ratelimiter.New(cfg.MaxRate, cfg.MaxRate),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run migrates every selected token.
//
// Per-file failures are recorded in the summary and never stop the run. A
// failure to list tokens, or a cancelled context, aborts the run. A failure
// while streaming one token abandons the rest of that token; the run goes
// on and all such failures are returned joined, next to the summary.
func (e *Engine) Run(ctx context.Context, selection catalog.Selection) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Direction: e.cfg.Direction,
		Started:   time.Now(),
	}
	e.metrics.RecordRunStart(summary.RunID, e.cfg.Direction.String())
	defer func() {
		summary.Finished = time.Now()
		summary.DirectoriesCreated = e.destination.Stats().Creates
		e.metrics.RecordRunDone()
	}()

	logger.Info("Starting migration run %s: %s -> %s (%s, tokens=%s, max_rate=%d/s)",
		summary.RunID, e.cfg.Source, e.cfg.Destination, e.cfg.Direction, selection, e.limiter.Limit())

	sourceRoot, err := e.store.PathToHandle(ctx, e.cfg.Source)
	if err != nil {
		return summary, fmt.Errorf("resolve source root %s: %w", e.cfg.Source, err)
	}

	tokens, err := e.catalog.ListTokens(ctx)
	if err != nil {
		return summary, &CatalogError{Err: err}
	}

	e.progress.Begin()

	var catalogErrs []error
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ts := &TokenSummary{Token: token}
		summary.Tokens = append(summary.Tokens, ts)

		if !selection.Selects(token.Name) {
			ts.SkipReason = SkipNotSelected
			e.progress.Skip(token.Name)
			e.metrics.RecordTokenSkipped(token.Name, SkipNotSelected)
			logger.Info("Skipping token %q (id=%d): not selected", token.Name, token.ID)
			continue
		}
		if !catalog.ValidTokenName(token.Name) {
			ts.SkipReason = SkipInvalidName
			e.progress.Skip(token.Name)
			e.metrics.RecordTokenSkipped(token.Name, SkipInvalidName)
			logger.Warn("Skipping token %q (id=%d): name cannot be used as a directory", token.Name, token.ID)
			continue
		}

		if err := e.runToken(ctx, token, sourceRoot, ts); err != nil {
			var catalogErr *CatalogError
			if !errors.As(err, &catalogErr) {
				return summary, err
			}
			catalogErrs = append(catalogErrs, err)
		}
	}

	e.progress.Done()

	logger.Info("Migration run %s finished: %d processed, %d moved, %d failed, %d directories created",
		summary.RunID, summary.Processed(), summary.Moved(), summary.Failed(), e.destination.Stats().Creates)

	return summary, errors.Join(catalogErrs...)
}

// runToken streams and migrates the files of one token. It returns a
// *CatalogError when the stream fails and ctx.Err() when cancelled.
func (e *Engine) runToken(ctx context.Context, token catalog.Token, sourceRoot namespace.FileHandle, ts *TokenSummary) error {
	start := time.Now()
	srcBefore, dstBefore := e.source.Stats(), e.destination.Stats()

	e.progress.StartToken(token.Name)
	e.metrics.RecordTokenStart(token.Name)
	logger.Debug("Processing token %q (id=%d)", token.Name, token.ID)

	var runErr error
	for rec, err := range e.catalog.FilesForToken(ctx, token.ID) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				runErr = ctxErr
				break
			}
			ts.CatalogErr = err
			runErr = &CatalogError{TokenID: token.ID, TokenName: token.Name, Err: err}
			e.metrics.RecordCatalogError(token.Name)
			logger.Error("Catalog failure in token %q after %d files: %v", token.Name, ts.Processed, err)
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		outcome := e.migrateFile(ctx, token, sourceRoot, rec.ID)
		ts.record(outcome)
		e.progress.Tick()
		e.metrics.RecordFile(token.Name, stageLabel(outcome))

		if !outcome.Moved() {
			logger.Error("Failed to migrate id=%s token=%s: %v", rec.ID, token.Name, outcome.Err)
		}
	}

	e.progress.FinishToken()
	ts.Duration = time.Since(start)
	e.metrics.RecordTokenDone(token.Name, ts.Processed, ts.Duration)
	e.recordResolverActivity("source", e.source.Stats().Sub(srcBefore))
	e.recordResolverActivity("destination", e.destination.Stats().Sub(dstBefore))

	logger.Debug("Token %q: %d processed, %d moved, %d failed; cache source=%d/%d destination=%d/%d",
		token.Name, ts.Processed, ts.Moved, ts.Failed,
		e.source.Len(), e.source.Capacity(), e.destination.Len(), e.destination.Capacity())

	return runErr
}

// migrateFile moves one file and reports what happened.
func (e *Engine) migrateFile(ctx context.Context, token catalog.Token, sourceRoot namespace.FileHandle, id string) Outcome {
	handle, err := e.store.IDToHandle(ctx, id)
	if err != nil {
		return failed(id, "", StageDiscovery, err)
	}
	rel, err := e.store.HandleToPath(ctx, handle, sourceRoot)
	if err != nil {
		return failed(id, "", StageDiscovery, err)
	}

	oldPath, newPath, err := targetPaths(e.cfg.Direction, e.cfg.Source, e.cfg.Destination, token.Name, rel)
	if err != nil {
		return failed(id, namespace.Join(e.cfg.Source, rel), StageDiscovery, err)
	}

	oldDir, name, ok := namespace.Split(oldPath)
	if !ok {
		return failed(id, oldPath, StageDiscovery, fmt.Errorf("path %s has no parent", oldPath))
	}
	newDir, _, ok := namespace.Split(newPath)
	if !ok {
		return failed(id, newPath, StageDiscovery, fmt.Errorf("path %s has no parent", newPath))
	}

	dstDir, err := e.destination.Resolve(ctx, newDir)
	if err != nil {
		return failed(id, newPath, StageResolve, err)
	}
	srcDir, err := e.source.Resolve(ctx, oldDir)
	if err != nil {
		return failed(id, oldPath, StageResolve, err)
	}

	if err := e.store.Move(ctx, handle, srcDir, name, dstDir, name); err != nil {
		return failed(id, oldPath, StageRename, err)
	}

	logger.Debug("Moved id=%s %s -> %s", id, oldPath, newPath)
	return Outcome{ID: id, From: oldPath, To: newPath}
}

func (e *Engine) recordResolverActivity(name string, delta resolver.Stats) {
	e.metrics.RecordResolverActivity(name, delta.Hits, delta.Misses, delta.Creates)
}

func stageLabel(o Outcome) string {
	if o.Moved() {
		return ""
	}
	return o.Stage().String()
}
