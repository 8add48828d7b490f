package taskrun

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes task metrics on a dedicated registry. A nil *Collector
// is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	started   prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
	dirs      prometheus.Counter
	duration  prometheus.Histogram
	running   prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actx_tasks_started_total",
			Help: "Total number of active context tasks accepted",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actx_tasks_completed_total",
			Help: "Total number of active context tasks completed",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actx_tasks_failed_total",
			Help: "Total number of active context tasks failed",
		}),
		dirs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actx_directories_processed_total",
			Help: "Total number of directory documents written",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "actx_task_duration_seconds",
			Help:    "Task execution time in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actx_tasks_running",
			Help: "Current number of running tasks",
		}),
	}
	c.registry.MustRegister(c.started, c.completed, c.failed, c.dirs, c.duration, c.running)
	return c
}

// Registry returns the registry holding the task metrics.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// WriteTextfile writes the current metrics in text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}

func (c *Collector) recordStarted() {
	if c != nil {
		c.started.Inc()
	}
}

func (c *Collector) recordRunning(delta float64) {
	if c != nil {
		c.running.Add(delta)
	}
}

func (c *Collector) recordCompleted(d time.Duration, dirs int) {
	if c == nil {
		return
	}
	c.completed.Inc()
	c.dirs.Add(float64(dirs))
	c.duration.Observe(d.Seconds())
}

func (c *Collector) recordFailed(d time.Duration) {
	if c == nil {
		return
	}
	c.failed.Inc()
	c.duration.Observe(d.Seconds())
}
