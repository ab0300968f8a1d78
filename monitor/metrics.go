// Package monitor aggregates per-route request metrics for the HTTP layer.
package monitor

import "time"

// RequestMetrics describes one handled request.
type RequestMetrics struct {
	Route     string        `json:"route"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
	TokensIn  int           `json:"tokens_in,omitempty"`
	TokensOut int           `json:"tokens_out,omitempty"`
}

type RouteMetrics struct {
	Route        string  `json:"route"`
	Requests     int     `json:"requests"`
	Errors       int     `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	TotalTokens  int     `json:"total_tokens"`

	totalDuration time.Duration
}

type Summary struct {
	TotalRequests int                     `json:"total_requests"`
	TotalErrors   int                     `json:"total_errors"`
	TotalTokens   int                     `json:"total_tokens"`
	Routes        map[string]RouteMetrics `json:"routes"`
	Since         time.Time               `json:"since"`
}
