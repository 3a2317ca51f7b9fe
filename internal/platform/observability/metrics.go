package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for MessagesHandled.
const (
	OutcomeForwarded   = "forwarded"
	OutcomeDuplicate   = "duplicate"
	OutcomeFiltered    = "filtered"
	OutcomePromotional = "promotional"
	OutcomeFailed      = "failed"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_received_total",
		Help: "The total number of messages received from the source channel",
	})

	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_handled_total",
		Help: "The total number of handled messages by outcome",
	}, []string{"outcome"})

	DuplicateSimilarity = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_duplicate_similarity",
		Help:    "Similarity score of detected duplicates",
		Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1},
	}, []string{"strategy"})

	ForwardDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_forward_delay_seconds",
		Help:    "Time from source message timestamp to successful relay",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300, 900, 3600},
	})

	DeliveryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_delivery_duration_seconds",
		Help:    "Duration of delivery calls to the target channel",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	DeliveryFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_delivery_fallbacks_total",
		Help: "The total number of delivery fallbacks by kind",
	}, []string{"kind"})

	FloodWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_flood_wait_total",
		Help: "The total number of FLOOD_WAIT responses from Telegram",
	})

	CharsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_ad_chars_removed_total",
		Help: "The total number of characters removed by ad stripping",
	})

	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_dedup_cache_size",
		Help: "Number of messages in the duplicate window",
	})

	HistoryLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_history_loaded_total",
		Help: "The total number of historical messages seeded into the duplicate window",
	})

	JournalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_journal_errors_total",
		Help: "The total number of failed journal writes",
	})
)
