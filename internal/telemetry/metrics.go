// Package telemetry collects local query metrics for the search API.
// Nothing is reported externally; a snapshot is served by the HTTP API.
package telemetry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/search"
)

// =============================================================================
// Query Kinds
// =============================================================================

// QueryKind classifies a query by the syntax it uses.
type QueryKind string

const (
	KindTerms   QueryKind = "terms"   // bare words
	KindPhrase  QueryKind = "phrase"  // contains a quoted phrase
	KindFielded QueryKind = "fielded" // contains field:value
	KindBoolean QueryKind = "boolean" // contains +required or -excluded terms
)

// ClassifyQuery returns the most specific kind of q. Fielded wins over
// phrase, which wins over boolean.
func ClassifyQuery(q string) QueryKind {
	fields := strings.Fields(q)
	var phrase, boolean bool
	for _, f := range fields {
		bare := strings.TrimLeft(f, "+-")
		if i := strings.IndexByte(bare, ':'); i > 0 && !strings.HasPrefix(bare, `"`) {
			return KindFielded
		}
		if strings.Contains(f, `"`) {
			phrase = true
		}
		if len(f) > 1 && (f[0] == '+' || f[0] == '-') {
			boolean = true
		}
	}
	switch {
	case phrase:
		return KindPhrase
	case boolean:
		return KindBoolean
	default:
		return KindTerms
	}
}

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// =============================================================================
// Events and Snapshots
// =============================================================================

// QueryEvent is one answered query.
type QueryEvent struct {
	Query       string
	ResultCount int
	Failed      bool
	Latency     time.Duration
}

// TermCount is a term and how often it was queried.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable copy of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	FailedQueries       int64                   `json:"failed_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	RepeatCount         int64                   `json:"repeat_count"`
	KindCounts          map[QueryKind]int64     `json:"kind_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of successful queries with no hits.
func (s *Snapshot) ZeroResultPercentage() float64 {
	answered := s.TotalQueries - s.FailedQueries
	if answered <= 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(answered) * 100
}

// =============================================================================
// Collector
// =============================================================================

// Config sizes the collector.
type Config struct {
	TopTermsCapacity      int // distinct terms tracked (default 100)
	ZeroResultsCapacity   int // recent zero-result queries kept (default 100)
	RecentQueriesCapacity int // queries remembered for repeat detection (default 500)
}

// DefaultConfig returns the default collector sizes.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics aggregates query events. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	kinds       map[QueryKind]int64
	latencies   map[LatencyBucket]int64
	topTerms    *lru.Cache[string, int64]
	recent      *lru.Cache[string, struct{}]
	zeroResults *CircularBuffer[string]

	total      int64
	failed     int64
	zeroResult int64
	repeats    int64
	since      time.Time
}

// NewQueryMetrics creates a collector. Zero Config fields take defaults.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails for non-positive sizes.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		kinds:       make(map[QueryKind]int64),
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		recent:      recent,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		since:       time.Now(),
	}
}

// Record adds one event.
func (m *QueryMetrics) Record(ev QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.kinds[ClassifyQuery(ev.Query)]++
	m.latencies[LatencyToBucket(ev.Latency)]++

	for _, term := range ExtractTerms(ev.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	key := strings.ToLower(strings.TrimSpace(ev.Query))
	if _, seen := m.recent.Get(key); seen {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})

	switch {
	case ev.Failed:
		m.failed++
	case ev.ResultCount == 0:
		m.zeroResult++
		m.zeroResults.Add(ev.Query)
	}
}

// Snapshot returns the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := make(map[QueryKind]int64, len(m.kinds))
	for k, v := range m.kinds {
		kinds[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &Snapshot{
		TotalQueries:        m.total,
		FailedQueries:       m.failed,
		ZeroResultCount:     m.zeroResult,
		RepeatCount:         m.repeats,
		KindCounts:          kinds,
		LatencyDistribution: latencies,
		TopTerms:            terms,
		ZeroResultQueries:   m.zeroResults.Items(),
		Since:               m.since,
	}
}

// ExtractTerms returns the lowercased words of a query, stripped of query
// syntax, keeping those of at least three characters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if i := strings.IndexByte(w, ':'); i >= 0 {
			w = w[i+1:]
		}
		w = strings.Trim(w, `+-"'()`)
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// =============================================================================
// Instrumented Searcher
// =============================================================================

// Searcher is the query side of the engine.
type Searcher interface {
	Search(ctx context.Context, query string) search.Response
	Status() (*index.Manifest, error)
}

// InstrumentedSearcher records every search into a QueryMetrics.
type InstrumentedSearcher struct {
	next    Searcher
	metrics *QueryMetrics
}

// Instrument wraps next so that each search is recorded into m.
func Instrument(next Searcher, m *QueryMetrics) *InstrumentedSearcher {
	return &InstrumentedSearcher{next: next, metrics: m}
}

// Search runs the query and records its outcome.
func (s *InstrumentedSearcher) Search(ctx context.Context, query string) search.Response {
	start := time.Now()
	resp := s.next.Search(ctx, query)
	s.metrics.Record(QueryEvent{
		Query:       query,
		ResultCount: resp.Total,
		Failed:      resp.Error != "",
		Latency:     time.Since(start),
	})
	return resp
}

// Status delegates to the wrapped searcher.
func (s *InstrumentedSearcher) Status() (*index.Manifest, error) {
	return s.next.Status()
}

// Metrics returns the collector.
func (s *InstrumentedSearcher) Metrics() *QueryMetrics {
	return s.metrics
}
