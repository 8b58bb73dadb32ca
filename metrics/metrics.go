// Package metrics 定义训练与建图过程的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 相似度计算结果
const (
	PairKept              = "kept"
	PairEmptyIntersection = "empty_intersection"
	PairDegenerate        = "degenerate"
	PairNonPositive       = "non_positive"
)

var (
	SimilarityPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_similarity_pairs_total",
			Help: "Entity pairs evaluated while building neighbor graphs, by result",
		},
		[]string{"result"},
	)

	NeighborGraphBuildSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hybridrec_neighbor_graph_build_seconds",
			Help:    "Time spent building a neighbor graph",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"strategy"},
	)

	NeighborListSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hybridrec_neighbor_list_size",
			Help:    "Neighbor list length per entity",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"side"},
	)

	PreferenceEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hybridrec_preference_entities",
			Help: "Entities with a non-empty preference vector",
		},
		[]string{"side"},
	)

	TrainingEpochs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridrec_training_epochs_total",
			Help: "Completed SGD epochs",
		},
	)

	TrainingLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridrec_training_loss",
			Help: "Total loss of the last completed epoch",
		},
	)

	SmoothnessLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridrec_training_smoothness_loss",
			Help: "Smoothness part of the last epoch loss",
		},
	)

	LearningRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hybridrec_learning_rate",
			Help: "Learning rate used by the last epoch",
		},
	)
)
