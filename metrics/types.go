// Package metrics tracks generation throughput and GPU state for the
// status endpoints. All types here are atoms: pure data, no behavior.
package metrics

import "time"

// GenerationSample records one completed (or failed) transformation.
type GenerationSample struct {
	// Model is the catalog name used.
	Model string `json:"model"`

	// Success reports whether the generation produced an image.
	Success bool `json:"success"`

	// Duration is the end-to-end generation time.
	Duration time.Duration `json:"duration"`

	// Timestamp is when the generation finished.
	Timestamp time.Time `json:"timestamp"`
}

// ModelMetrics aggregates samples for a single model.
type ModelMetrics struct {
	// Total is the number of generations attempted.
	Total int64 `json:"total"`

	// Succeeded and Failed partition Total.
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`

	// AvgDuration is the mean duration of successful generations.
	AvgDuration time.Duration `json:"avg_duration"`

	// MinDuration and MaxDuration bound successful generations.
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// GenerationMetrics is the aggregate across all models.
type GenerationMetrics struct {
	// Total, Succeeded, Failed count all generations.
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`

	// ByModel breaks the totals down per catalog model.
	ByModel map[string]*ModelMetrics `json:"by_model"`
}

// GPUMetrics is one snapshot of GPU state.
type GPUMetrics struct {
	// Name is the device name as reported by the driver.
	Name string `json:"name"`

	// Utilization is the GPU utilization percentage (0-100).
	Utilization float64 `json:"utilization"`

	// Temperature is the GPU temperature in Celsius.
	Temperature float64 `json:"temperature"`

	// MemoryTotal and MemoryUsed are in bytes.
	MemoryTotal int64 `json:"memory_total"`
	MemoryUsed  int64 `json:"memory_used"`

	// MemoryFree is MemoryTotal - MemoryUsed, in bytes.
	MemoryFree int64 `json:"memory_free"`
}

// SystemStatus summarizes the service for status endpoints.
type SystemStatus struct {
	// Uptime is how long the process has been running.
	Uptime time.Duration `json:"uptime"`

	// Device is the compute device in use ("cuda" or "cpu").
	Device string `json:"device"`

	// GPUAvailable reports whether GPU metrics are being collected.
	GPUAvailable bool `json:"gpu_available"`

	// GPU is the latest snapshot; zero value when unavailable.
	GPU GPUMetrics `json:"gpu"`

	// Generations aggregates transformation activity.
	Generations GenerationMetrics `json:"generations"`
}
