package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MigrationMetrics provides observability for a migration run.
//
// This interface is optional - the engine falls back to a no-op
// implementation when none is given.
type MigrationMetrics interface {
	// RecordRunStart records the start of a run.
	RecordRunStart(runID string, direction string)

	// RecordRunDone records the end of a run, successful or not.
	RecordRunDone()

	// RecordTokenStart records that a token's files are being streamed.
	RecordTokenStart(token string)

	// RecordFile records the outcome of one file.
	//
	// Parameters:
	//   - token: Token name
	//   - stage: "" for a moved file, otherwise the failing stage
	//     ("discovery", "resolve", "rename")
	RecordFile(token string, stage string)

	// RecordTokenSkipped records a token that was not processed.
	RecordTokenSkipped(token string, reason string)

	// RecordTokenDone records a finished token.
	RecordTokenDone(token string, files int, duration time.Duration)

	// RecordCatalogError records a catalog failure while streaming a token.
	RecordCatalogError(token string)

	// RecordResolverActivity adds resolver cache activity.
	//
	// Parameters:
	//   - resolver: "source" or "destination"
	//   - hits, misses: Cache lookups since the last call
	//   - creates: Directories created since the last call
	RecordResolverActivity(resolver string, hits, misses, creates uint64)
}

// migrationMetrics is the Prometheus implementation of MigrationMetrics.
// It also feeds the live RunStatus served on /status.
type migrationMetrics struct {
	status *RunStatus

	runInfo            *prometheus.GaugeVec
	filesTotal         *prometheus.CounterVec
	tokensSkipped      *prometheus.CounterVec
	tokenFiles         *prometheus.GaugeVec
	tokenDuration      *prometheus.HistogramVec
	catalogErrors      *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	directoriesCreated prometheus.Counter
}

// NewMigrationMetrics creates a Prometheus-backed MigrationMetrics instance
// registered in the global registry. Progress is mirrored into status, which
// may be nil.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewMigrationMetrics(status *RunStatus) MigrationMetrics {
	if !IsEnabled() {
		return NewNoopMigrationMetrics()
	}
	return newMigrationMetrics(GetRegistry(), status)
}

// NewMigrationMetricsWithRegistry registers the run metrics in reg rather
// than the global registry.
func NewMigrationMetricsWithRegistry(reg prometheus.Registerer, status *RunStatus) MigrationMetrics {
	return newMigrationMetrics(reg, status)
}

func newMigrationMetrics(reg prometheus.Registerer, status *RunStatus) *migrationMetrics {
	if status == nil {
		status = NewRunStatus()
	}
	return &migrationMetrics{
		status: status,
		runInfo: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenmig_run_info",
				Help: "Set to 1 for the run in progress, 0 once it finished",
			},
			[]string{"run_id", "direction"},
		),
		filesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenmig_files_total",
				Help: "Files processed by token and outcome",
			},
			[]string{"token", "outcome", "stage"},
		),
		tokensSkipped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenmig_tokens_skipped_total",
				Help: "Tokens not processed, by reason",
			},
			[]string{"reason"},
		),
		tokenFiles: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenmig_token_files",
				Help: "Files processed in the last run of a token",
			},
			[]string{"token"},
		),
		tokenDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tokenmig_token_duration_seconds",
				Help: "Time spent processing one token",
				Buckets: []float64{
					1,    // 1s
					10,   // 10s
					60,   // 1m
					300,  // 5m
					1800, // 30m
					3600, // 1h
					4 * 3600,
					12 * 3600,
				},
			},
			[]string{"token"},
		),
		catalogErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenmig_catalog_errors_total",
				Help: "Catalog failures while streaming a token",
			},
			[]string{"token"},
		),
		cacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenmig_resolver_cache_hits_total",
				Help: "Directory resolver cache hits",
			},
			[]string{"resolver"},
		),
		cacheMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenmig_resolver_cache_misses_total",
				Help: "Directory resolver cache misses",
			},
			[]string{"resolver"},
		),
		directoriesCreated: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "tokenmig_directories_created_total",
				Help: "Directories created in the destination tree",
			},
		),
	}
}

func (m *migrationMetrics) RecordRunStart(runID string, direction string) {
	m.runInfo.Reset()
	m.runInfo.WithLabelValues(runID, direction).Set(1)
	m.status.runStarted(runID, direction)
}

func (m *migrationMetrics) RecordRunDone() {
	snap := m.status.Snapshot()
	m.runInfo.WithLabelValues(snap.RunID, snap.Direction).Set(0)
	m.status.runDone()
}

func (m *migrationMetrics) RecordTokenStart(token string) {
	m.status.tokenStarted(token)
}

func (m *migrationMetrics) RecordFile(token string, stage string) {
	outcome := "moved"
	if stage != "" {
		outcome = "failed"
	}
	m.filesTotal.WithLabelValues(token, outcome, stage).Inc()
	m.status.file(stage == "")
}

func (m *migrationMetrics) RecordTokenSkipped(token string, reason string) {
	m.tokensSkipped.WithLabelValues(reason).Inc()
	m.status.tokenSkipped()
}

func (m *migrationMetrics) RecordTokenDone(token string, files int, duration time.Duration) {
	m.tokenFiles.WithLabelValues(token).Set(float64(files))
	m.tokenDuration.WithLabelValues(token).Observe(duration.Seconds())
	m.status.tokenDone()
}

func (m *migrationMetrics) RecordCatalogError(token string) {
	m.catalogErrors.WithLabelValues(token).Inc()
	m.status.catalogError()
}

func (m *migrationMetrics) RecordResolverActivity(resolver string, hits, misses, creates uint64) {
	m.cacheHits.WithLabelValues(resolver).Add(float64(hits))
	m.cacheMisses.WithLabelValues(resolver).Add(float64(misses))
	m.directoriesCreated.Add(float64(creates))
}

// noopMigrationMetrics is a no-op implementation of MigrationMetrics with zero overhead.
type noopMigrationMetrics struct{}

// NewNoopMigrationMetrics returns a MigrationMetrics that records nothing.
func NewNoopMigrationMetrics() MigrationMetrics {
	return noopMigrationMetrics{}
}

func (noopMigrationMetrics) RecordRunStart(runID string, direction string)                {}
func (noopMigrationMetrics) RecordRunDone()                                               {}
func (noopMigrationMetrics) RecordTokenStart(token string)                                {}
func (noopMigrationMetrics) RecordFile(token string, stage string)                        {}
func (noopMigrationMetrics) RecordTokenSkipped(token string, reason string)               {}
func (noopMigrationMetrics) RecordTokenDone(token string, files int, d time.Duration)     {}
func (noopMigrationMetrics) RecordCatalogError(token string)                              {}
func (noopMigrationMetrics) RecordResolverActivity(resolver string, h, m, creates uint64) {}
