package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution paths reported by TopicResolutions.
const (
	PathEmpty          = "empty"
	PathMemory         = "memory"
	PathStore          = "store"
	PathEmbedding      = "embedding"
	PathDisambiguation = "disambiguation"
	PathFallback       = "fallback"
)

var (
	// Topic canonicalization
	TopicResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_topic_resolutions_total",
			Help: "Topic resolutions by the path that produced the answer",
		},
		[]string{"path"},
	)

	TopicExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_topic_external_calls_total",
			Help: "Embedding and disambiguation calls made by the canonicalizer",
		},
		[]string{"service", "result"}, // service: embedding|disambiguation, result: ok|error
	)

	EmbeddingIndexRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newslens_embedding_index_refreshes_total",
			Help: "Reloads of the canonical embedding list from the store",
		},
	)

	AliasCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "newslens_topic_alias_cache_entries",
			Help: "Surfaces held by the in-process alias cache",
		},
	)

	// Enrichment
	EnrichQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newslens_enrich_queue_items",
			Help: "Items waiting in the enrichment queue after the last pass",
		},
		[]string{"state"}, // pending|failed
	)

	EnrichmentItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_enrichment_items_total",
			Help: "Items processed by enrichment passes",
		},
		[]string{"result"}, // ok|failed|skipped
	)

	EnrichmentPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newslens_enrichment_pass_duration_seconds",
			Help:    "Duration of a full enrichment pass",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Ranking
	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newslens_ranking_duration_seconds",
			Help:    "Duration of a ranking request including candidate loading",
			Buckets: prometheus.DefBuckets,
		},
	)

	RankingCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newslens_ranking_candidates",
			Help:    "Number of candidate items scored per ranking request",
			Buckets: []float64{0, 10, 50, 100, 200, 400, 800},
		},
	)

	DiversifiedRankings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_rankings_total",
			Help: "Ranking requests by selection mode",
		},
		[]string{"mode"}, // diversified|plain
	)

	// External HTTP services
	ExternalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_external_requests_total",
			Help: "Requests to external services by client and outcome",
		},
		[]string{"client", "outcome"}, // outcome: ok|error|retry|breaker_open
	)
)
