package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	collectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_atlas_collections_total",
		Help: "Collections by outcome",
	}, []string{"outcome"})

	collectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "revenue_atlas_collection_duration_seconds",
		Help:    "Wall time of a full collection",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
	})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_atlas_analyses_total",
		Help: "Analysis runs by kind and outcome",
	}, []string{"kind", "outcome"})
)
