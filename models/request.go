package models

// AnalyzeRequest is the payload for POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL  string `json:"url" binding:"required"`
	Mode string `json:"mode"`

	// NoCache bypasses the report cache for this request.
	NoCache bool `json:"no_cache"`
}

// AnalyzeResponse wraps a report for the API surface.
type AnalyzeResponse struct {
	Success bool         `json:"success"`
	Report  *Report      `json:"report,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`

	// CacheStatus is "hit" or "miss" when the cache was consulted.
	CacheStatus string `json:"cache_status,omitempty"`
}

// BatchAnalyzeRequest is the payload for POST /api/v1/batch/analyze.
type BatchAnalyzeRequest struct {
	URLs []string `json:"urls" binding:"required"`
	Mode string   `json:"mode"`
}

// BatchAnalyzeResponse carries one report per accepted target plus the
// deferred remainder.
type BatchAnalyzeResponse struct {
	Success  bool         `json:"success"`
	Reports  []*Report    `json:"reports,omitempty"`
	Deferred []string     `json:"deferred,omitempty"`
	TimedOut bool         `json:"timed_out"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Engines []string `json:"engines"`
	Version string   `json:"version"`
}
