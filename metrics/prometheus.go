package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var PolicyEventsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "policy_events_processed_total",
		Help: "Total number of policy events processed by the workflow engine",
	},
	[]string{"event_type", "outcome"},
)

var PolicyEventDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "policy_event_duration_seconds",
		Help:    "End-to-end duration of one workflow run per event type",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"event_type"},
)

var BlacklistHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blacklist_hits_total",
		Help: "Total number of events skipped by the IP blacklist gate",
	},
	[]string{"event_type"},
)

var BlacklistReloadFailuresTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "blacklist_reload_failures_total",
		Help: "Total number of failed CIDR blacklist reloads (fail-open)",
	},
)

var PublishFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "policy_publish_failures_total",
		Help: "Total number of failed enforcement publishes",
	},
	[]string{"event_type"},
)

var PolicyEventsDLQTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "policy_events_dlq_total",
		Help: "Total number of policy events routed to the DLQ",
	},
	[]string{"reason"},
)

var KafkaPublisherSuccess = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_success_total",
		Help: "Total number of successful Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaPublisherFailure = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaSubscriberFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_subscriber_failure_total",
		Help: "Total number of failed Kafka reads",
	},
	[]string{"topic"},
)

var KafkaConsumerLag = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "kafka_consumer_lag",
		Help: "Lag of Kafka consumer group per topic",
	},
	[]string{"group", "topic"},
)

var KafkaRebalancesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_rebalances_total",
		Help: "Number of Kafka consumer group rebalances",
	},
	[]string{"group"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
}

func InitWorkerMetrics() {
	prometheus.MustRegister(PolicyEventsProcessedTotal)
	prometheus.MustRegister(PolicyEventDuration)
	prometheus.MustRegister(BlacklistHitsTotal)
	prometheus.MustRegister(BlacklistReloadFailuresTotal)
	prometheus.MustRegister(PublishFailuresTotal)
	prometheus.MustRegister(PolicyEventsDLQTotal)
}

func InitKafkaMetrics() {
	prometheus.MustRegister(KafkaPublisherSuccess)
	prometheus.MustRegister(KafkaPublisherFailure)
	prometheus.MustRegister(KafkaSubscriberFailureTotal)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaRebalancesTotal)
}
