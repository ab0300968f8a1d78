package monitor

import (
	"sync"
	"time"
)

type Collector interface {
	Record(m RequestMetrics)
	Summary() Summary
}

type InMemoryCollector struct {
	mu        sync.RWMutex
	routes    map[string]RouteMetrics
	startTime time.Time
}

func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		routes:    make(map[string]RouteMetrics),
		startTime: time.Now(),
	}
}

// Record counts a request against its route. Status 400 and above counts
// as an error.
func (c *InMemoryCollector) Record(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rm := c.routes[m.Route]
	rm.Route = m.Route
	rm.Requests++
	if m.Status >= 400 {
		rm.Errors++
	}
	rm.totalDuration += m.Duration
	rm.AvgLatencyMs = float64(rm.totalDuration.Microseconds()) / 1000 / float64(rm.Requests)
	rm.TotalTokens += m.TokensIn + m.TokensOut
	c.routes[m.Route] = rm
}

func (c *InMemoryCollector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{Routes: make(map[string]RouteMetrics, len(c.routes)), Since: c.startTime}
	for k, v := range c.routes {
		s.Routes[k] = v
		s.TotalRequests += v.Requests
		s.TotalErrors += v.Errors
		s.TotalTokens += v.TotalTokens
	}
	return s
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = make(map[string]RouteMetrics)
	c.startTime = time.Now()
}

type NoOpCollector struct{}

func NewNoOpCollector() *NoOpCollector {
	return &NoOpCollector{}
}

func (c *NoOpCollector) Record(m RequestMetrics) {}

func (c *NoOpCollector) Summary() Summary {
	return Summary{Routes: map[string]RouteMetrics{}}
}
