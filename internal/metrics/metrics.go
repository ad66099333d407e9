package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the dashboard backend.
// Every helper is safe to call on a nil *Metrics.
type Metrics struct {
	// TTL cache
	CacheHits     *prometheus.CounterVec // labels: category
	CacheMisses   *prometheus.CounterVec // labels: category
	CacheComputes *prometheus.CounterVec // labels: category, result=ok|error
	CacheEntries  prometheus.Gauge

	// Series assembly
	SeriesBuildDur *prometheus.HistogramVec // labels: interval
	BarsGenerated  prometheus.Counter
	SeriesFallback *prometheus.CounterVec // labels: reason

	// Refresh scheduler
	RefreshRuns    *prometheus.CounterVec // labels: task, result=ok|error
	RefreshSkipped *prometheus.CounterVec // labels: task
	RefreshDur     *prometheus.HistogramVec

	// Weather upstream
	WeatherRequests  *prometheus.CounterVec // labels: result=ok|error|timeout
	WeatherFallbacks *prometheus.CounterVec // labels: reason
	BreakerState     *prometheus.GaugeVec   // labels: key; 0=closed, 1=open, 2=half-open
	BreakerTrips     prometheus.Counter

	// Publisher / gateway
	PublishTotal *prometheus.CounterVec // labels: result=ok|error|deferred
	WSClients    prometheus.Gauge
	WSDrops      prometheus.Counter
	HTTPRequests *prometheus.CounterVec // labels: route, code
}

// NewMetrics registers all metrics on reg and returns them. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_cache_hits_total",
			Help: "TTL cache hits",
		}, []string{"category"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_cache_misses_total",
			Help: "TTL cache misses, expiries and forced refreshes",
		}, []string{"category"}),
		CacheComputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_cache_computes_total",
			Help: "Compute calls made by the TTL cache",
		}, []string{"category", "result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agri_cache_entries",
			Help: "Entries currently held by the TTL cache (including expired, not yet overwritten)",
		}),

		SeriesBuildDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agri_series_build_duration_seconds",
			Help:    "Series assembly latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"interval"}),
		BarsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agri_bars_generated_total",
			Help: "Synthetic bars generated",
		}),
		SeriesFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_series_fallback_total",
			Help: "Series requests answered with an empty series",
		}, []string{"reason"}),

		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_refresh_runs_total",
			Help: "Completed refresh runs",
		}, []string{"task", "result"}),
		RefreshSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_refresh_skipped_total",
			Help: "Refresh ticks skipped because the previous run was still in flight",
		}, []string{"task"}),
		RefreshDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agri_refresh_duration_seconds",
			Help:    "Refresh run latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),

		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_weather_requests_total",
			Help: "Upstream weather provider calls",
		}, []string{"result"}),
		WeatherFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_weather_fallbacks_total",
			Help: "Weather responses served from the local simulator",
		}, []string{"reason"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agri_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"key"}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agri_circuit_breaker_trips_total",
			Help: "Times any circuit breaker tripped open",
		}),

		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_publish_total",
			Help: "Series publications to Redis",
		}, []string{"result"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agri_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		WSDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agri_ws_drops_total",
			Help: "Envelopes dropped because a client's send buffer was full",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.CacheComputes,
		m.CacheEntries,
		m.SeriesBuildDur,
		m.BarsGenerated,
		m.SeriesFallback,
		m.RefreshRuns,
		m.RefreshSkipped,
		m.RefreshDur,
		m.WeatherRequests,
		m.WeatherFallbacks,
		m.BreakerState,
		m.BreakerTrips,
		m.PublishTotal,
		m.WSClients,
		m.WSDrops,
		m.HTTPRequests,
	)

	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) CacheHit(category string) {
	if m != nil {
		m.CacheHits.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) CacheMiss(category string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) CacheCompute(category string, err error) {
	if m != nil {
		m.CacheComputes.WithLabelValues(category, result(err)).Inc()
	}
}

func (m *Metrics) SetCacheEntries(n int) {
	if m != nil {
		m.CacheEntries.Set(float64(n))
	}
}

// ObserveSeries records one series build.
func (m *Metrics) ObserveSeries(interval string, bars int, d time.Duration) {
	if m == nil {
		return
	}
	m.SeriesBuildDur.WithLabelValues(interval).Observe(d.Seconds())
	m.BarsGenerated.Add(float64(bars))
}

func (m *Metrics) SeriesFallbackInc(reason string) {
	if m != nil {
		m.SeriesFallback.WithLabelValues(reason).Inc()
	}
}

// ObserveRefresh records a completed refresh run.
func (m *Metrics) ObserveRefresh(task string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(task, result(err)).Inc()
	m.RefreshDur.WithLabelValues(task).Observe(d.Seconds())
}

func (m *Metrics) RefreshSkip(task string) {
	if m != nil {
		m.RefreshSkipped.WithLabelValues(task).Inc()
	}
}

func (m *Metrics) WeatherRequest(res string) {
	if m != nil {
		m.WeatherRequests.WithLabelValues(res).Inc()
	}
}

func (m *Metrics) WeatherFallback(reason string) {
	if m != nil {
		m.WeatherFallbacks.WithLabelValues(reason).Inc()
	}
}

// BreakerTransition records a breaker moving to state (0/1/2).
func (m *Metrics) BreakerTransition(key string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(key).Set(float64(state))
	if state == 1 {
		m.BreakerTrips.Inc()
	}
}

func (m *Metrics) Publish(res string) {
	if m != nil {
		m.PublishTotal.WithLabelValues(res).Inc()
	}
}

func (m *Metrics) SetWSClients(n int) {
	if m != nil {
		m.WSClients.Set(float64(n))
	}
}

func (m *Metrics) WSDrop() {
	if m != nil {
		m.WSDrops.Inc()
	}
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, itoa(code)).Inc()
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
