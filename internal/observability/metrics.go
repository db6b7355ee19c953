// v1
// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	ticksTotal         prometheus.Counter
	skippedTicksTotal  prometheus.Counter
	decisionsTotal     *prometheus.CounterVec
	decideDuration     prometheus.Histogram
	switchesTotal      *prometheus.CounterVec
	weatherTransitions *prometheus.CounterVec
	metricValue        *prometheus.GaugeVec
	equipmentState     *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_ticks_total",
			Help: "Total simulation ticks executed.",
		}),
		skippedTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_skipped_ticks_total",
			Help: "Total ticks skipped because a collaborator failed.",
		}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_decisions_total",
			Help: "Total control decisions by source.",
		}, []string{"source"}),
		decideDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "greenhouse_decide_duration_seconds",
			Help:    "Histogram of controller decision durations.",
			Buckets: prometheus.DefBuckets,
		}),
		switchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_equipment_switches_total",
			Help: "Total equipment state flips by kind and new state.",
		}, []string{"kind", "state"}),
		weatherTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_weather_transitions_total",
			Help: "Total weather regime transitions by edge.",
		}, []string{"from", "to"}),
		metricValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_metric_value",
			Help: "Current simulated value per greenhouse metric.",
		}, []string{"metric"}),
		equipmentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_equipment_state",
			Help: "Current equipment state per kind (0 off, 1 on).",
		}, []string{"kind"}),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.ticksTotal,
		m.skippedTicksTotal,
		m.decisionsTotal,
		m.decideDuration,
		m.switchesTotal,
		m.weatherTransitions,
		m.metricValue,
		m.equipmentState,
	)

	for _, k := range equipment.Kinds() {
		m.equipmentState.WithLabelValues(string(k)).Set(0)
	}

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

func (m *Metrics) SkippedTick() {
	if m == nil {
		return
	}
	m.skippedTicksTotal.Inc()
}

func (m *Metrics) Decision(source string, duration time.Duration) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(source).Inc()
	m.decideDuration.Observe(duration.Seconds())
}

func (m *Metrics) EquipmentSwitched(kind equipment.Kind, active bool) {
	if m == nil {
		return
	}
	state := "off"
	val := 0.0
	if active {
		state = "on"
		val = 1.0
	}
	m.switchesTotal.WithLabelValues(string(kind), state).Inc()
	m.equipmentState.WithLabelValues(string(kind)).Set(val)
}

func (m *Metrics) WeatherTransition(from, to climate.Regime) {
	if m == nil {
		return
	}
	m.weatherTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ObserveReading(v climate.Vector) {
	if m == nil {
		return
	}
	m.metricValue.WithLabelValues("temperature").Set(v.Temperature)
	m.metricValue.WithLabelValues("humidity").Set(v.Humidity)
	m.metricValue.WithLabelValues("soil_moisture").Set(v.SoilMoisture)
	m.metricValue.WithLabelValues("light_intensity").Set(v.LightIntensity)
	m.metricValue.WithLabelValues("co2_concentration").Set(v.CO2)
}
