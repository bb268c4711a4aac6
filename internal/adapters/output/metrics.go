package output

import (
	"errors"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

// PrometheusMetrics exports pipeline counters. It implements
// ports.MetricsCollector and ports.ProcessingObserver.
type PrometheusMetrics struct {
	linesRead      prometheus.CounterFunc
	linesByResult  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	sinkErrors     *prometheus.CounterVec
	rotations      prometheus.Counter
	cycleDuration  prometheus.Histogram
	cycleFailures  prometheus.Counter
	lastSuccess    prometheus.GaugeFunc
	trackingFile   prometheus.GaugeFunc
	memoryUsage    prometheus.GaugeFunc
	gatherer       prometheus.Gatherer
	internalMetric *domain.PipelineMetrics

	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

type MetricsConfig struct {
	Addr       string
	Path       string
	HealthPath string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Addr:       "127.0.0.1:9091",
		Path:       "/metrics",
		HealthPath: "/ready",
	}
}

// NewPrometheusMetrics registers the collectors with reg, or with the
// default registry when reg is nil.
func NewPrometheusMetrics(namespace string, internalMetrics *domain.PipelineMetrics, reg *prometheus.Registry) *PrometheusMetrics {
	if namespace == "" {
		namespace = "roomwatch"
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	m := &PrometheusMetrics{
		gatherer:       gatherer,
		internalMetric: internalMetrics,
	}

	m.linesRead = factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_read_total",
		Help:      "Total number of log lines read",
	}, func() float64 {
		if internalMetrics != nil {
			return float64(internalMetrics.TotalLines())
		}
		return 0
	})

	m.linesByResult = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_processed_total",
		Help:      "Log lines by parse result",
	}, []string{"result"})

	m.notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_decisions_total",
		Help:      "Notifier decisions by reason",
	}, []string{"decision"})

	m.sinkErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_errors_total",
		Help:      "Failed notification sends by failure kind",
	}, []string{"kind"})

	m.rotations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_rotations_total",
		Help:      "Number of times a newer log file replaced the tracked one",
	})

	m.cycleDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Time spent in one polling cycle",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	m.cycleFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycle_failures_total",
		Help:      "Polling cycles that ended with an error",
	})

	m.lastSuccess = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_successful_cycle_timestamp_seconds",
		Help:      "Unix time of the last polling cycle that succeeded",
	}, func() float64 {
		if internalMetrics == nil {
			return 0
		}
		last := internalMetrics.LastSuccessfulCycle()
		if last.IsZero() {
			return 0
		}
		return float64(last.UnixNano()) / 1e9
	})

	m.trackingFile = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracking_log_file",
		Help:      "1 when a log file is being tracked",
	}, func() float64 {
		if internalMetrics != nil && internalMetrics.CurrentFile() != "" {
			return 1
		}
		return 0
	})

	m.memoryUsage = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_bytes",
		Help:      "Current memory usage in bytes",
	}, func() float64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return float64(ms.Alloc)
	})

	return m
}

func (m *PrometheusMetrics) IncrementLinesProcessedByResult(result string) {
	m.linesByResult.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) IncrementNotifications(decision string) {
	m.notifications.WithLabelValues(decision).Inc()
}

func (m *PrometheusMetrics) IncrementSinkErrors(kind string) {
	m.sinkErrors.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) IncrementRotations() {
	m.rotations.Inc()
}

func (m *PrometheusMetrics) ObserveCycle(seconds float64, ok bool) {
	m.cycleDuration.Observe(seconds)
	if !ok {
		m.cycleFailures.Inc()
	}
}

// StartServer serves the metrics endpoint, plus health on config.HealthPath
// when health is non-nil. The listener is bound before returning so address
// errors surface to the caller.
func (m *PrometheusMetrics) StartServer(config MetricsConfig, health http.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if config.Path == "" {
		config.Path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	if health != nil && config.HealthPath != "" {
		mux.Handle(config.HealthPath, health)
	}

	ln, err := net.Listen("tcp", config.Addr)
	if err != nil {
		return err
	}
	m.listener = ln

	m.server = &http.Server{
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := m.server
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

// Addr returns the bound address once the server is started.
func (m *PrometheusMetrics) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *PrometheusMetrics) StopServer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
