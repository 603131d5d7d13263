package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the progression metrics. A nil *Metrics records nothing.
type Metrics struct {
	Interactions     *prometheus.CounterVec
	XPAwarded        prometheus.Counter
	LevelUps         prometheus.Counter
	QuestsGenerated  *prometheus.CounterVec
	QuestTransitions *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	AnalysisFailures prometheus.Counter
}

// InitMetrics registers the metrics on reg. connManager feeds the live stream gauge and may be nil.
func InitMetrics(reg prometheus.Registerer, connManager *ConnectionManager) *Metrics {
	factory := promauto.With(reg)

	metrics := &Metrics{
		Interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dytto_interactions_total",
			Help: "Total number of interactions applied by sentiment",
		}, []string{"sentiment"}),

		XPAwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "dytto_xp_awarded_total",
			Help: "Total XP awarded to relationships",
		}),

		LevelUps: factory.NewCounter(prometheus.CounterOpts{
			Name: "dytto_level_ups_total",
			Help: "Total number of relationship level-ups",
		}),

		QuestsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dytto_quests_generated_total",
			Help: "Total number of quests generated by type",
		}, []string{"type"}),

		QuestTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dytto_quest_transitions_total",
			Help: "Total number of quest status transitions by target status",
		}, []string{"status"}),

		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dytto_analysis_duration_seconds",
			Help:    "Interaction analysis latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),

		AnalysisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dytto_analysis_failures_total",
			Help: "Total number of failed interaction analyses",
		}),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "dytto_events_stream_connections",
			Help: "Current number of live activity feed connections",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	)

	return metrics
}

// RecordInteraction records an applied interaction and its XP
func (m *Metrics) RecordInteraction(sentiment string, xp int) {
	if m == nil {
		return
	}
	m.Interactions.WithLabelValues(sentiment).Inc()
	m.XPAwarded.Add(float64(xp))
}

// RecordLevelUps records levels gained in one interaction
func (m *Metrics) RecordLevelUps(levels int) {
	if m == nil || levels <= 0 {
		return
	}
	m.LevelUps.Add(float64(levels))
}

// RecordQuestGenerated records a persisted quest
func (m *Metrics) RecordQuestGenerated(questType string) {
	if m == nil {
		return
	}
	m.QuestsGenerated.WithLabelValues(questType).Inc()
}

// RecordQuestTransition records quests moved to status
func (m *Metrics) RecordQuestTransition(status string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.QuestTransitions.WithLabelValues(status).Add(float64(count))
}

// RecordAnalysis records analysis latency and failures
func (m *Metrics) RecordAnalysis(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Observe(seconds)
	if failed {
		m.AnalysisFailures.Inc()
	}
}
