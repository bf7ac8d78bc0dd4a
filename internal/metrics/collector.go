package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/zohobooks/books"
)

// Histogram bounds in microseconds: 1µs to 2 minutes, 3 significant figures.
const (
	minTrackable = 1
	maxTrackable = 120_000_000
	sigFigs      = 3
)

// Collector implements books.Recorder.
type Collector struct {
	mu        sync.Mutex
	overall   *series
	resources map[string]*series
	retries   int64
	statuses  map[string]map[string]int // resource -> status -> failures
	errors    map[string]int
}

type series struct {
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
}

func newSeries() *series {
	return &series{hist: hdrhistogram.New(minTrackable, maxTrackable, sigFigs)}
}

func (s *series) record(latency time.Duration, failed bool) {
	us := latency.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}
	_ = s.hist.RecordValue(us)

	s.sumLatency += latency
	if s.minLatency == 0 || latency < s.minLatency {
		s.minLatency = latency
	}
	if latency > s.maxLatency {
		s.maxLatency = latency
	}
	if failed {
		s.failures++
	} else {
		s.successes++
	}
}

func (s *series) quantile(q float64) time.Duration {
	if s.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(s.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Stats is a point-in-time summary.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	Retries        int64         `json:"retries"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	Resources     map[string]ResourceStats  `json:"resources,omitempty"`
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty"`
	Errors        map[string]int            `json:"errors,omitempty"`
}

// ResourceStats summarizes the attempts against one resource.
type ResourceStats struct {
	Total        int64   `json:"total"`
	Failures     int64   `json:"failures"`
	MeanLatency  float64 `json:"mean_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		overall:   newSeries(),
		resources: make(map[string]*series),
		statuses:  make(map[string]map[string]int),
		errors:    make(map[string]int),
	}
}

// Observe records one API attempt.
func (c *Collector) Observe(obs books.Observation) {
	failed := obs.Err != nil || obs.StatusCode >= 400

	c.mu.Lock()
	defer c.mu.Unlock()

	c.overall.record(obs.Latency, failed)

	resource := obs.Resource
	if resource == "" {
		resource = "other"
	}
	rs, ok := c.resources[resource]
	if !ok {
		rs = newSeries()
		c.resources[resource] = rs
	}
	rs.record(obs.Latency, failed)

	if obs.Attempt > 1 {
		c.retries++
	}
	if !failed {
		return
	}

	status := "transport"
	if obs.StatusCode > 0 {
		status = strconv.Itoa(obs.StatusCode)
	}
	if c.statuses[resource] == nil {
		c.statuses[resource] = make(map[string]int)
	}
	c.statuses[resource][status]++
	c.errors[ErrorLabel(obs.Err)]++
}

// Stats computes the summary. elapsed is the wall time used for the request
// rate.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.overall
	total := o.successes + o.failures
	stats := Stats{
		Total:      total,
		Successes:  o.successes,
		Failures:   o.failures,
		Retries:    c.retries,
		MinLatency: o.minLatency,
		MaxLatency: o.maxLatency,
		P50Latency: o.quantile(50),
		P90Latency: o.quantile(90),
		P99Latency: o.quantile(99),
		Duration:   elapsed,
	}
	if total > 0 {
		stats.MeanLatency = o.sumLatency / time.Duration(total)
	}
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	stats.MinLatencyMs = ms(stats.MinLatency)
	stats.MaxLatencyMs = ms(stats.MaxLatency)
	stats.MeanLatencyMs = ms(stats.MeanLatency)
	stats.P50LatencyMs = ms(stats.P50Latency)
	stats.P90LatencyMs = ms(stats.P90Latency)
	stats.P99LatencyMs = ms(stats.P99Latency)
	stats.DurationMs = ms(elapsed)

	if len(c.resources) > 0 {
		stats.Resources = make(map[string]ResourceStats, len(c.resources))
		for name, s := range c.resources {
			n := s.successes + s.failures
			rs := ResourceStats{
				Total:        n,
				Failures:     s.failures,
				P50LatencyMs: ms(s.quantile(50)),
				P99LatencyMs: ms(s.quantile(99)),
			}
			if n > 0 {
				rs.MeanLatency = ms(s.sumLatency / time.Duration(n))
			}
			stats.Resources[name] = rs
		}
	}
	if len(c.statuses) > 0 {
		stats.StatusBuckets = make(map[string]map[string]int, len(c.statuses))
		for resource, codes := range c.statuses {
			cp := make(map[string]int, len(codes))
			for code, n := range codes {
				cp[code] = n
			}
			stats.StatusBuckets[resource] = cp
		}
	}
	if len(c.errors) > 0 {
		stats.Errors = make(map[string]int, len(c.errors))
		for k, v := range c.errors {
			stats.Errors[k] = v
		}
	}
	return stats
}

// ResourceNames returns the observed resources in alphabetical order.
func (s Stats) ResourceNames() []string {
	names := make([]string, 0, len(s.Resources))
	for name := range s.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
