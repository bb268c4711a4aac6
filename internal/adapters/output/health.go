package output

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Status       string        `json:"status"`
	CurrentFile  string        `json:"current_file,omitempty"`
	SinceSuccess time.Duration `json:"since_success_ns"`
	Cycles       int64         `json:"cycles"`
	FailedCycles int64         `json:"failed_cycles"`
	Uptime       time.Duration `json:"uptime_ns"`
	Reason       string        `json:"reason,omitempty"`
}

// HealthChecker reports readiness of the watch loop from its pipeline
// metrics. The loop is ready while it tracks a log file and has completed a
// cycle within MaxStaleness.
type HealthChecker struct {
	metrics      *domain.PipelineMetrics
	maxStaleness time.Duration
	now          func() time.Time

	lastCheck     HealthStatus
	lastCheckTime time.Time
	lastCheckMu   sync.RWMutex
	checkInterval time.Duration
}

type HealthCheckerConfig struct {
	MaxStaleness  time.Duration
	CheckInterval time.Duration
}

// DefaultHealthCheckerConfig allows three missed polls before the loop is
// reported stale.
func DefaultHealthCheckerConfig(pollInterval time.Duration) HealthCheckerConfig {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return HealthCheckerConfig{
		MaxStaleness:  3 * pollInterval,
		CheckInterval: time.Second,
	}
}

func NewHealthChecker(metrics *domain.PipelineMetrics, config HealthCheckerConfig) *HealthChecker {
	return &HealthChecker{
		metrics:       metrics,
		maxStaleness:  config.MaxStaleness,
		checkInterval: config.CheckInterval,
		now:           time.Now,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.lastCheckMu.RLock()
	if !h.lastCheckTime.IsZero() && h.now().Sub(h.lastCheckTime) < h.checkInterval {
		cached := h.lastCheck
		h.lastCheckMu.RUnlock()
		return cached
	}
	h.lastCheckMu.RUnlock()

	status := h.performCheck()

	h.lastCheckMu.Lock()
	h.lastCheck = status
	h.lastCheckTime = h.now()
	h.lastCheckMu.Unlock()

	return status
}

func (h *HealthChecker) performCheck() HealthStatus {
	if h.metrics == nil {
		return HealthStatus{Status: "OFFLINE", Reason: "no pipeline metrics"}
	}

	snap := h.metrics.Snapshot()
	status := HealthStatus{
		CurrentFile:  snap.CurrentFile,
		Cycles:       snap.Cycles,
		FailedCycles: snap.FailedCycles,
		Uptime:       h.now().Sub(snap.StartTime),
	}

	if snap.CurrentFile == "" {
		status.Status = "OFFLINE"
		status.Reason = "no log file tracked"
		return status
	}
	if snap.LastSuccessfulCycle.IsZero() {
		status.Status = "STARTING"
		status.Reason = "no cycle has completed yet"
		return status
	}

	status.SinceSuccess = h.now().Sub(snap.LastSuccessfulCycle)
	if h.maxStaleness > 0 && status.SinceSuccess > h.maxStaleness {
		status.Status = "STALE"
		status.Reason = fmt.Sprintf("last successful cycle %v ago exceeds %v", status.SinceSuccess.Round(time.Millisecond), h.maxStaleness)
		return status
	}

	status.Healthy = true
	status.Status = "HEALTHY"
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"healthy":        status.Healthy,
		"status":         status.Status,
		"current_file":   status.CurrentFile,
		"since_success":  status.SinceSuccess.Seconds(),
		"cycles":         status.Cycles,
		"failed_cycles":  status.FailedCycles,
		"uptime_seconds": status.Uptime.Seconds(),
		"reason":         status.Reason,
	})
}
