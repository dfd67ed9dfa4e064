// Package monitoring keeps in-process counters for the classification service.
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"langclass/ml"
)

// ModelStat counts activity for one registered model.
type ModelStat struct {
	Name        string           `json:"name"`
	Predictions int64            `json:"predictions"`
	Labels      map[ml.Label]int `json:"labels"`
	Errors      int64            `json:"errors"`
	TotalTime   time.Duration    `json:"-"`
	AvgLatency  string           `json:"avg_latency"`
}

// Metrics collects serving counters. It is safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	startTime      time.Time
	trainingRuns   int64
	trainingErrors int64
	requestErrors  int64
	cacheHits      int64
	cacheMisses    int64
	wsClients      int
	models         map[string]*ModelStat
}

// NewMetrics starts the uptime clock.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		models:    make(map[string]*ModelStat),
	}
}

func (m *Metrics) model(name string) *ModelStat {
	stat, ok := m.models[name]
	if !ok {
		stat = &ModelStat{Name: name, Labels: make(map[ml.Label]int)}
		m.models[name] = stat
	}
	return stat
}

// RecordPrediction counts one served label and its latency.
func (m *Metrics) RecordPrediction(model string, label ml.Label, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stat := m.model(model)
	stat.Predictions++
	stat.Labels[label]++
	stat.TotalTime += elapsed
}

// RecordPredictionError counts a failed prediction for model.
func (m *Metrics) RecordPredictionError(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.model(model).Errors++
}

// RecordTraining counts a training run, and a failure when err is set.
func (m *Metrics) RecordTraining(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trainingRuns++
	if err != nil {
		m.trainingErrors++
	}
}

// RecordRequestError counts a request answered with an error.
func (m *Metrics) RecordRequestError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestErrors++
}

// RecordCache counts a prediction cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

// SetStreamClients records the number of open classification sockets.
func (m *Metrics) SetStreamClients(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wsClients = n
}

// Uptime is the time since NewMetrics.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Uptime         string       `json:"uptime"`
	Goroutines     int          `json:"goroutines"`
	HeapAlloc      uint64       `json:"heap_alloc"`
	GCCount        uint32       `json:"gc_count"`
	TrainingRuns   int64        `json:"training_runs"`
	TrainingErrors int64        `json:"training_errors"`
	RequestErrors  int64        `json:"request_errors"`
	CacheHits      int64        `json:"cache_hits"`
	CacheMisses    int64        `json:"cache_misses"`
	StreamClients  int          `json:"stream_clients"`
	Models         []*ModelStat `json:"models"`
}

// Snapshot copies the counters, models sorted by name.
func (m *Metrics) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Uptime:         m.Uptime().Round(time.Second).String(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAlloc:      mem.HeapAlloc,
		GCCount:        mem.NumGC,
		TrainingRuns:   m.trainingRuns,
		TrainingErrors: m.trainingErrors,
		RequestErrors:  m.requestErrors,
		CacheHits:      m.cacheHits,
		CacheMisses:    m.cacheMisses,
		StreamClients:  m.wsClients,
		Models:         make([]*ModelStat, 0, len(m.models)),
	}
	for _, stat := range m.models {
		c := *stat
		c.Labels = make(map[ml.Label]int, len(stat.Labels))
		for k, v := range stat.Labels {
			c.Labels[k] = v
		}
		if c.Predictions > 0 {
			c.AvgLatency = (c.TotalTime / time.Duration(c.Predictions)).String()
		}
		s.Models = append(s.Models, &c)
	}
	sort.Slice(s.Models, func(i, j int) bool { return s.Models[i].Name < s.Models[j].Name })
	return s
}

// ExportPrometheus renders the counters in the Prometheus text format.
func (s Snapshot) ExportPrometheus() string {
	var b strings.Builder
	counter := func(name, help string, value int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, value)
	}
	counter("langclass_training_runs_total", "Training runs started", s.TrainingRuns)
	counter("langclass_training_errors_total", "Training runs that failed", s.TrainingErrors)
	counter("langclass_request_errors_total", "Requests answered with an error", s.RequestErrors)
	counter("langclass_cache_hits_total", "Prediction cache hits", s.CacheHits)
	counter("langclass_cache_misses_total", "Prediction cache misses", s.CacheMisses)

	fmt.Fprintf(&b, "# HELP langclass_predictions_total Predictions served\n# TYPE langclass_predictions_total counter\n")
	for _, stat := range s.Models {
		for _, label := range []ml.Label{ml.English, ml.Dutch} {
			fmt.Fprintf(&b, "langclass_predictions_total{model=%q,label=%q} %d\n", stat.Name, label, stat.Labels[label])
		}
	}
	fmt.Fprintf(&b, "# HELP langclass_stream_clients Open classification sockets\n# TYPE langclass_stream_clients gauge\nlangclass_stream_clients %d\n", s.StreamClients)
	return b.String()
}
