package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "airmonitor_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	loopIterations prometheus.Counter
	stepLatency    *prometheus.HistogramVec
	stepOverruns   *prometheus.CounterVec

	preferencesApplied  *prometheus.CounterVec
	preferencesRejected *prometheus.CounterVec

	sensorErrors prometheus.Counter

	cloudPublish *prometheus.CounterVec
	breakerState prometheus.Gauge

	firmwareChecks *prometheus.CounterVec

	configClients prometheus.Gauge
	watchdogFed   prometheus.Gauge
)

// Init registers device metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		loopIterations = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "loop_iterations_total",
				Help: "Total completed main loop iterations",
			},
		)
		stepLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "loop_step_seconds",
				Help:    "Main loop step duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"step"},
		)
		stepOverruns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "loop_step_overruns_total",
				Help: "Steps that exceeded the step budget",
			},
			[]string{"step"},
		)

		preferencesApplied = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "preferences_applied_total",
				Help: "Applied preference changes by kind",
			},
			[]string{"kind"},
		)
		preferencesRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "preferences_rejected_total",
				Help: "Rejected preference changes by reason",
			},
			[]string{"reason"},
		)

		sensorErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_errors_total",
				Help: "Sensor runtime errors reported by the hub",
			},
		)

		cloudPublish = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cloud_publish_total",
				Help: "Cloud publications by result",
			},
			[]string{"result"},
		)
		breakerState = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "cloud_breaker_state",
				Help: "Cloud publish breaker state (0 closed, 1 half-open, 2 open)",
			},
		)

		firmwareChecks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "firmware_checks_total",
				Help: "Firmware update checks by result",
			},
			[]string{"result"},
		)

		configClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "config_clients",
				Help: "Connected config-server websocket clients",
			},
		)
		watchdogFed = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "watchdog_last_fed_timestamp_seconds",
				Help: "Unix time of the last watchdog feed",
			},
		)

		prometheus.MustRegister(
			loopIterations,
			stepLatency,
			stepOverruns,
			preferencesApplied,
			preferencesRejected,
			sensorErrors,
			cloudPublish,
			breakerState,
			firmwareChecks,
			configClients,
			watchdogFed,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStep records one step duration and whether it overran its budget.
func ObserveStep(step string, d time.Duration, overrun bool) {
	if stepLatency != nil {
		stepLatency.WithLabelValues(step).Observe(d.Seconds())
	}
	if overrun && stepOverruns != nil {
		stepOverruns.WithLabelValues(step).Inc()
	}
}

// IncIteration counts a completed loop iteration.
func IncIteration() {
	if loopIterations != nil {
		loopIterations.Inc()
	}
}

// IncPreferenceApplied counts an applied preference change.
func IncPreferenceApplied(kind string) {
	if preferencesApplied != nil {
		preferencesApplied.WithLabelValues(kind).Inc()
	}
}

// IncPreferenceRejected counts a rejected preference change.
func IncPreferenceRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if preferencesRejected != nil {
		preferencesRejected.WithLabelValues(reason).Inc()
	}
}

func IncSensorError() {
	if sensorErrors != nil {
		sensorErrors.Inc()
	}
}

// IncCloudPublish counts a publish attempt by result.
func IncCloudPublish(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if cloudPublish != nil {
		cloudPublish.WithLabelValues(result).Inc()
	}
}

func SetBreakerState(state int) {
	if breakerState != nil {
		breakerState.Set(float64(state))
	}
}

// IncFirmwareCheck counts a manifest check by result.
func IncFirmwareCheck(result string) {
	if firmwareChecks != nil {
		firmwareChecks.WithLabelValues(result).Inc()
	}
}

func SetConfigClients(n int) {
	if configClients != nil {
		configClients.Set(float64(n))
	}
}

func SetWatchdogFed(t time.Time) {
	if watchdogFed != nil {
		watchdogFed.Set(float64(t.Unix()))
	}
}
