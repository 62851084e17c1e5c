package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GiveawaysCreated counts giveaways whose control was posted
	GiveawaysCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giveaway_created_total",
		Help: "Number of giveaways created",
	})

	// Joins counts participation attempts by result
	Joins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_joins_total",
			Help: "Participation attempts",
		},
		[]string{"result"}, // joined, already_joined, not_found
	)

	// Resolutions counts finished giveaways by outcome
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_resolutions_total",
			Help: "Resolved giveaways",
		},
		[]string{"outcome"}, // cancelled, winners, aborted
	)

	// Notifications counts direct messages by kind and delivery status
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_notifications_total",
			Help: "Direct notifications sent to users",
		},
		[]string{"kind", "status"},
	)

	// ActiveGiveaways tracks the registry size
	ActiveGiveaways = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "giveaway_active",
		Help: "Giveaways currently accepting participants",
	})

	// ArmedTimers tracks expiry timers waiting to fire
	ArmedTimers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "giveaway_scheduler_armed_timers",
		Help: "Expiry timers waiting to fire",
	})

	// StoreSaveDuration tracks the latency of persisting engine state
	StoreSaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "giveaway_store_save_duration_seconds",
			Help: "Duration of state saves in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.5,   // 500ms
				1.0,   // 1s
				5.0,   // 5s
			},
		},
		[]string{"status"}, // success or failure
	)
)

func RecordJoin(result string) {
	Joins.WithLabelValues(result).Inc()
}

func RecordResolution(outcome string) {
	Resolutions.WithLabelValues(outcome).Inc()
}

func RecordNotification(kind string, ok bool) {
	Notifications.WithLabelValues(kind, status(ok)).Inc()
}

// RecordStoreSave records the duration of a state save
func RecordStoreSave(ok bool, seconds float64) {
	StoreSaveDuration.WithLabelValues(status(ok)).Observe(seconds)
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
