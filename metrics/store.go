package metrics

import (
	"sync"
	"time"
)

// maxRecentSamples bounds the in-memory recent-sample ring.
const maxRecentSamples = 100

// Store aggregates generation samples and GPU snapshots in memory.
// All methods are concurrency-safe. This is a molecule composing the
// atom types from types.go.
type Store struct {
	mu sync.RWMutex

	startTime time.Time
	device    string

	total     int64
	succeeded int64
	byModel   map[string]*modelAccumulator

	recent     []GenerationSample
	recentHead int
	recentSize int

	gpu          GPUMetrics
	gpuAvailable bool
}

// modelAccumulator tracks running aggregates for one model.
type modelAccumulator struct {
	total         int64
	succeeded     int64
	totalDuration time.Duration
	minDuration   time.Duration
	maxDuration   time.Duration
}

// NewStore creates an empty metrics store.
func NewStore(device string) *Store {
	return &Store{
		startTime: time.Now(),
		device:    device,
		byModel:   make(map[string]*modelAccumulator),
		recent:    make([]GenerationSample, maxRecentSamples),
	}
}

// RecordGeneration folds one sample into the aggregates.
func (s *Store) RecordGeneration(sample GenerationSample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if sample.Success {
		s.succeeded++
	}

	acc := s.byModel[sample.Model]
	if acc == nil {
		acc = &modelAccumulator{}
		s.byModel[sample.Model] = acc
	}
	acc.total++
	if sample.Success {
		acc.succeeded++
		acc.totalDuration += sample.Duration
		if acc.minDuration == 0 || sample.Duration < acc.minDuration {
			acc.minDuration = sample.Duration
		}
		if sample.Duration > acc.maxDuration {
			acc.maxDuration = sample.Duration
		}
	}

	s.recent[s.recentHead] = sample
	s.recentHead = (s.recentHead + 1) % maxRecentSamples
	if s.recentSize < maxRecentSamples {
		s.recentSize++
	}
}

// UpdateGPU stores the latest GPU snapshot.
func (s *Store) UpdateGPU(gpu GPUMetrics, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpu = gpu
	s.gpuAvailable = available
}

// GenerationMetrics returns the aggregated generation counters.
func (s *Store) GenerationMetrics() GenerationMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := GenerationMetrics{
		Total:     s.total,
		Succeeded: s.succeeded,
		Failed:    s.total - s.succeeded,
		ByModel:   make(map[string]*ModelMetrics, len(s.byModel)),
	}
	for model, acc := range s.byModel {
		m := &ModelMetrics{
			Total:       acc.total,
			Succeeded:   acc.succeeded,
			Failed:      acc.total - acc.succeeded,
			MinDuration: acc.minDuration,
			MaxDuration: acc.maxDuration,
		}
		if acc.succeeded > 0 {
			m.AvgDuration = acc.totalDuration / time.Duration(acc.succeeded)
		}
		out.ByModel[model] = m
	}
	return out
}

// RecentGenerations returns up to limit samples, newest first.
func (s *Store) RecentGenerations(limit int) []GenerationSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.recentSize {
		limit = s.recentSize
	}
	result := make([]GenerationSample, limit)
	for i := 0; i < limit; i++ {
		idx := (s.recentHead - 1 - i + maxRecentSamples) % maxRecentSamples
		result[i] = s.recent[idx]
	}
	return result
}

// SystemStatus builds the composite status snapshot.
func (s *Store) SystemStatus() SystemStatus {
	generations := s.GenerationMetrics()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return SystemStatus{
		Uptime:       time.Since(s.startTime),
		Device:       s.device,
		GPUAvailable: s.gpuAvailable,
		GPU:          s.gpu,
		Generations:  generations,
	}
}
