// Package metrics provides Prometheus instrumentation for mirror resolution.
//
// Labels are bounded: cache names, results and tiers. Content ids and
// manifest references never become label values.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookupsTotal counts response cache lookups by cache name and result.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anistream_cache_lookups_total",
		Help: "Total number of response cache lookups, by cache and result (hit/miss).",
	}, []string{"cache", "result"})

	// SourceRequestsTotal counts upstream requests by endpoint and outcome.
	SourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anistream_source_requests_total",
		Help: "Total number of upstream requests, by endpoint (mirrors/manifest/backup) and result.",
	}, []string{"endpoint", "result"})

	// ManifestAttemptsTotal counts manifest fetch attempts made under backoff.
	ManifestAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anistream_manifest_attempts_total",
		Help: "Total number of manifest fetch attempts, by result.",
	}, []string{"result"})

	// FailoversTotal counts mirrors marked failed, by reason.
	FailoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anistream_failovers_total",
		Help: "Total number of mirrors marked failed, by reason.",
	}, []string{"reason"})

	// ExhaustionResetsTotal counts failed-set resets after every mirror failed.
	ExhaustionResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anistream_exhaustion_resets_total",
		Help: "Total number of times every mirror failed and the failed set was cleared.",
	})

	// QualityScore tracks the latest computed network quality score.
	QualityScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anistream_quality_score",
		Help: "Latest network quality score in [0,1].",
	})

	// RecommendedTier tracks the latest recommended tier as its ordinal (0=lowest .. 4=full).
	RecommendedTier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anistream_recommended_tier",
		Help: "Latest recommended playback tier ordinal (0=lowest, 4=full).",
	})
)

// RecordCacheLookup increments the lookup counter for a named cache.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordSourceRequest increments the upstream request counter.
func RecordSourceRequest(endpoint string, err error) {
	SourceRequestsTotal.WithLabelValues(endpoint, result(err)).Inc()
}

// RecordManifestAttempt increments the manifest attempt counter.
func RecordManifestAttempt(err error) {
	ManifestAttemptsTotal.WithLabelValues(result(err)).Inc()
}

// RecordFailover increments the failover counter.
func RecordFailover(reason string) {
	FailoversTotal.WithLabelValues(reason).Inc()
}

// RecordQuality publishes the latest score and tier ordinal.
func RecordQuality(score float64, tier int) {
	QualityScore.Set(score)
	RecommendedTier.Set(float64(tier))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
