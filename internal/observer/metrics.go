package observer

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsEnabled = true

// --- Event consumption --- //
var (
	eventProcessingLabels = []string{"event_type", "company_id", "consumer_type"}
	eventActionLabels     = []string{"event_type", "company_id", "consumer_type", "action", "error_type"}

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_board_events_received_total",
			Help: "Total number of events received from NATS, labeled by consumer type.",
		},
		eventProcessingLabels,
	)
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_board_events_processed_total",
			Help: "Total number of events successfully processed and acknowledged.",
		},
		eventProcessingLabels,
	)
	EventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_board_events_failed_total",
			Help: "Total number of events that failed processing (NAK, DLQ or error).",
		},
		eventProcessingLabels,
	)
	EventProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callback_board_event_processing_duration_seconds",
			Help:    "Histogram of event processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		eventProcessingLabels,
	)
	EventProcessingActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_board_event_processing_actions_total",
			Help: "Total count of ack/nak/dlq decisions after event processing, labeled by error type.",
		},
		eventActionLabels,
	)
)

// --- DLQ worker --- //
var (
	dlqTenantLabels = []string{"company_id"}

	dlqFetchRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callback_board_dlq_fetch_requests_total",
		Help: "Total number of fetch requests made to the DLQ stream.",
	})
	dlqFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callback_board_dlq_fetch_errors_total",
		Help: "Total number of errors encountered during DLQ fetch requests.",
	})
	dlqWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callback_board_dlq_workers_active",
		Help: "Current number of running workers in the DLQ pool.",
	})
	dlqTasksSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_dlq_tasks_submitted_total",
		Help: "Total number of tasks submitted to the DLQ worker pool.",
	}, dlqTenantLabels)
	dlqProcessingDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "callback_board_dlq_processing_duration_seconds",
		Help:    "Histogram of processing durations for DLQ messages.",
		Buckets: prometheus.DefBuckets,
	}, dlqTenantLabels)
	dlqTaskRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_dlq_task_retries_total",
		Help: "Total number of delayed NAKs issued for DLQ messages.",
	}, dlqTenantLabels)
	dlqAcksSuccessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_dlq_acks_success_total",
		Help: "Total number of DLQ messages acknowledged after a successful replay.",
	}, dlqTenantLabels)
	dlqAcksFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_dlq_acks_failure_total",
		Help: "Total number of DLQ messages that could not be acknowledged or parsed.",
	}, dlqTenantLabels)
	dlqTasksDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_dlq_tasks_dropped_total",
		Help: "Total number of DLQ messages parked in exhausted_events after max retries.",
	}, dlqTenantLabels)
)

// --- Database --- //
var DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "callback_board_db_operation_duration_seconds",
		Help:    "Histogram of database operation durations.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	},
	[]string{"operation", "entity", "company_id", "status"},
)

// --- Callback domain --- //
var (
	callbacksCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_callbacks_created_total",
		Help: "Total number of callbacks created, labeled by source (intent or manual) and priority.",
	}, []string{"source", "priority"})
	intentDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_intent_decisions_total",
		Help: "Total number of wrap-up notes parsed, labeled by matched rule and outcome.",
	}, []string{"rule", "outcome"})
	reschedulesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_reschedules_total",
		Help: "Total number of drag-drop reschedules, labeled by source and target column.",
	}, []string{"from", "to"})
	overdueAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callback_board_overdue_alerts_total",
		Help: "Total number of overdue alerts pushed to board sessions.",
	})
	boardSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callback_board_sessions_active",
		Help: "Current number of connected board stream sessions.",
	})
	changeNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_change_notifications_total",
		Help: "Total number of callback change notifications, labeled by direction and result.",
	}, []string{"direction", "result"})
)

// --- HTTP API --- //
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_http_requests_total",
		Help: "Total number of API requests.",
	}, []string{"method", "route", "status"})
	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "callback_board_http_request_duration_seconds",
		Help:    "Histogram of API request durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// --- Load generator --- //
var (
	loadgenLabels = []string{"subject", "company_id"}

	loadgenMessagesAttemptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_loadgen_messages_attempted_total",
		Help: "Total number of wrap-up events the load generator attempted to publish.",
	}, loadgenLabels)
	loadgenMessagesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_loadgen_messages_published_total",
		Help: "Total number of wrap-up events successfully published by the load generator.",
	}, loadgenLabels)
	loadgenPublishErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callback_board_loadgen_publish_errors_total",
		Help: "Total number of publish errors seen by the load generator.",
	}, loadgenLabels)
)

// InitMetrics switches metric collection on or off. Collectors are registered
// by promauto at package init either way.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// Enabled reports whether metric collection is on.
func Enabled() bool {
	return metricsEnabled
}

func sanitizeTenant(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}

func IncEventsReceived(eventType, tenant, consumerType string) {
	if !metricsEnabled {
		return
	}
	EventsReceivedTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Inc()
}

func IncEventsProcessed(eventType, tenant, consumerType string) {
	if !metricsEnabled {
		return
	}
	EventsProcessedTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Inc()
}

func IncEventsFailed(eventType, tenant, consumerType string) {
	if !metricsEnabled {
		return
	}
	EventsFailedTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Inc()
}

func ObserveEventProcessingDuration(eventType, tenant, consumerType string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	EventProcessingDurationSeconds.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType).Observe(duration.Seconds())
}

// IncEventProcessingAction counts an ack/nak/dlq decision.
func IncEventProcessingAction(eventType, tenant, consumerType, action, errorType string) {
	if !metricsEnabled {
		return
	}
	EventProcessingActionsTotal.WithLabelValues(eventType, sanitizeTenant(tenant), consumerType, action, SanitizeErrorType(errorType)).Inc()
}

var errorTypeLabels = map[string]struct{}{
	"none": {}, "database": {}, "validation": {}, "not_found": {}, "unauthorized": {},
	"conflict": {}, "duplicate": {}, "timeout": {}, "nats": {}, "unmarshal": {}, "panic": {},
	"unknown": {}, "unknown_event_type": {}, "metadata": {}, "dlq_marshal_fail": {}, "dlq_publish_fail": {},
}

// SanitizeErrorType folds an error string into a small set of label values.
func SanitizeErrorType(errStr string) string {
	if errStr == "" {
		return "none"
	}
	if _, ok := errorTypeLabels[errStr]; ok {
		return errStr
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "duplicate"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"):
		return "validation"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}

func IncDlqFetchRequest() {
	if metricsEnabled {
		dlqFetchRequestsTotal.Inc()
	}
}

func IncDlqFetchError() {
	if metricsEnabled {
		dlqFetchErrorsTotal.Inc()
	}
}

func SetDlqWorkersActive(count int) {
	if metricsEnabled {
		dlqWorkersActive.Set(float64(count))
	}
}

func IncDlqTasksSubmitted(companyID string) {
	if metricsEnabled {
		dlqTasksSubmittedTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

func ObserveDlqProcessingDuration(companyID string, duration time.Duration) {
	if metricsEnabled {
		dlqProcessingDurationSeconds.WithLabelValues(sanitizeTenant(companyID)).Observe(duration.Seconds())
	}
}

func IncDlqTaskRetry(companyID string) {
	if metricsEnabled {
		dlqTaskRetriesTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

func IncDlqAckSuccess(companyID string) {
	if metricsEnabled {
		dlqAcksSuccessTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

func IncDlqAckFailure(companyID string) {
	if metricsEnabled {
		dlqAcksFailureTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

func IncDlqTasksDropped(companyID string) {
	if metricsEnabled {
		dlqTasksDroppedTotal.WithLabelValues(sanitizeTenant(companyID)).Inc()
	}
}

// ObserveDbOperationDuration records how long a repository call took and whether it failed.
func ObserveDbOperationDuration(operation, entity, companyID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(companyID), status).Observe(duration.Seconds())
}

func IncCallbacksCreated(source, priority string) {
	if metricsEnabled {
		callbacksCreatedTotal.WithLabelValues(source, priority).Inc()
	}
}

// IncIntentDecision counts one parsed note. rule is empty when the default date applied.
func IncIntentDecision(rule string, created bool) {
	if !metricsEnabled {
		return
	}
	if rule == "" {
		rule = "default"
	}
	outcome := "skipped"
	if created {
		outcome = "created"
	}
	intentDecisionsTotal.WithLabelValues(rule, outcome).Inc()
}

func IncReschedule(from, to string) {
	if metricsEnabled {
		reschedulesTotal.WithLabelValues(from, to).Inc()
	}
}

func IncOverdueAlerts() {
	if metricsEnabled {
		overdueAlertsTotal.Inc()
	}
}

// AddBoardSessions moves the active session gauge by delta.
func AddBoardSessions(delta int) {
	if metricsEnabled {
		boardSessionsActive.Add(float64(delta))
	}
}

// IncChangeNotification counts published ("out") and delivered ("in") change notifications.
func IncChangeNotification(direction string, err error) {
	if !metricsEnabled {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	changeNotificationsTotal.WithLabelValues(direction, result).Inc()
}

// ObserveHTTPRequest records one API request. route must be the route template, not the raw path.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func IncLoadgenMessagesAttempted(subject, companyID string) {
	if metricsEnabled {
		loadgenMessagesAttemptedTotal.WithLabelValues(subject, sanitizeTenant(companyID)).Inc()
	}
}

func IncLoadgenMessagesPublished(subject, companyID string) {
	if metricsEnabled {
		loadgenMessagesPublishedTotal.WithLabelValues(subject, sanitizeTenant(companyID)).Inc()
	}
}

func IncLoadgenPublishErrors(subject, companyID string) {
	if metricsEnabled {
		loadgenPublishErrorsTotal.WithLabelValues(subject, sanitizeTenant(companyID)).Inc()
	}
}
