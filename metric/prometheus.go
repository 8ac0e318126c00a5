package metric

import (
	"strings"
	"sync"
	"time"

	metrics "github.com/armon/go-metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PrometheusSink is a go-metrics sink backed by a private prometheus registry.
// A run is short lived, so the registry is pushed to a Pushgateway instead of scraped.
type PrometheusSink struct {
	mu        sync.Mutex
	registry  *prometheus.Registry
	gauges    map[string]prometheus.Gauge
	summaries map[string]prometheus.Summary
	counters  map[string]prometheus.Counter
}

func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{
		registry:  prometheus.NewRegistry(),
		gauges:    make(map[string]prometheus.Gauge),
		summaries: make(map[string]prometheus.Summary),
		counters:  make(map[string]prometheus.Counter),
	}
}

func (p *PrometheusSink) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusSink) flattenKey(parts []string, labels []metrics.Label) string {
	for _, l := range labels {
		parts = append(parts, l.Value)
	}
	joined := strings.Join(parts, "_")
	joined = strings.Replace(joined, " ", "_", -1)
	joined = strings.Replace(joined, ".", "_", -1)
	joined = strings.Replace(joined, "-", "_", -1)
	joined = strings.Replace(joined, "=", "_", -1)
	joined = strings.Replace(joined, "$", "_", -1)
	joined = strings.Replace(joined, "#", "_", -1)
	return joined
}

func (p *PrometheusSink) SetGauge(parts []string, val float32) {
	p.SetGaugeWithLabels(parts, val, nil)
}

func (p *PrometheusSink) SetGaugeWithLabels(parts []string, val float32, labels []metrics.Label) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.flattenKey(parts, labels)
	g, ok := p.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: key,
			Help: key,
		})
		p.registry.MustRegister(g)
		p.gauges[key] = g
	}
	g.Set(float64(val))
}

func (p *PrometheusSink) AddSample(parts []string, val float32) {
	p.AddSampleWithLabels(parts, val, nil)
}

func (p *PrometheusSink) AddSampleWithLabels(parts []string, val float32, labels []metrics.Label) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.flattenKey(parts, labels)
	s, ok := p.summaries[key]
	if !ok {
		s = prometheus.NewSummary(prometheus.SummaryOpts{
			Name:   key,
			Help:   key,
			MaxAge: 10 * time.Second,
		})
		p.registry.MustRegister(s)
		p.summaries[key] = s
	}
	s.Observe(float64(val))
}

// EmitKey is not implemented. Prometheus has no type retaining an arbitrary number of values.
func (p *PrometheusSink) EmitKey(key []string, val float32) {
}

func (p *PrometheusSink) IncrCounter(parts []string, val float32) {
	p.IncrCounterWithLabels(parts, val, nil)
}

func (p *PrometheusSink) IncrCounterWithLabels(parts []string, val float32, labels []metrics.Label) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.flattenKey(parts, labels)
	c, ok := p.counters[key]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Name: key,
			Help: key,
		})
		p.registry.MustRegister(c)
		p.counters[key] = c
	}
	c.Add(float64(val))
}

// Push sends the current registry content to a Pushgateway.
func (p *PrometheusSink) Push(addr string, job string) error {
	if addr == "" {
		return nil
	}
	err := push.New(addr, job).Gatherer(p.registry).Push()
	if err != nil {
		return errors.Wrapf(err, "push metrics to %v", addr)
	}
	return nil
}
