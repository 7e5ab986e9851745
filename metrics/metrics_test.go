package metrics

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sample(model string, success bool, d time.Duration) GenerationSample {
	return GenerationSample{Model: model, Success: success, Duration: d}
}

func TestStoreRecordGeneration(t *testing.T) {
	s := NewStore("cuda")

	s.RecordGeneration(sample("stable-diffusion", true, 2*time.Second))
	s.RecordGeneration(sample("stable-diffusion", true, 4*time.Second))
	s.RecordGeneration(sample("stable-diffusion", false, 0))
	s.RecordGeneration(sample("instruct-pix2pix", true, time.Second))

	m := s.GenerationMetrics()
	if m.Total != 4 || m.Succeeded != 3 || m.Failed != 1 {
		t.Errorf("totals = %d/%d/%d, want 4/3/1", m.Total, m.Succeeded, m.Failed)
	}

	sd := m.ByModel["stable-diffusion"]
	if sd == nil {
		t.Fatal("no stable-diffusion entry")
	}
	if sd.Total != 3 || sd.Succeeded != 2 || sd.Failed != 1 {
		t.Errorf("sd totals = %+v", sd)
	}
	if sd.AvgDuration != 3*time.Second {
		t.Errorf("AvgDuration = %v, want 3s", sd.AvgDuration)
	}
	if sd.MinDuration != 2*time.Second || sd.MaxDuration != 4*time.Second {
		t.Errorf("min/max = %v/%v", sd.MinDuration, sd.MaxDuration)
	}
}

func TestStoreRecentGenerations(t *testing.T) {
	s := NewStore("cpu")

	for i := 0; i < 5; i++ {
		s.RecordGeneration(sample("m", true, time.Duration(i)*time.Second))
	}

	recent := s.RecentGenerations(3)
	if len(recent) != 3 {
		t.Fatalf("RecentGenerations(3) = %d samples", len(recent))
	}
	// Newest first.
	if recent[0].Duration != 4*time.Second || recent[2].Duration != 2*time.Second {
		t.Errorf("order wrong: %v, %v, %v", recent[0].Duration, recent[1].Duration, recent[2].Duration)
	}

	all := s.RecentGenerations(0)
	if len(all) != 5 {
		t.Errorf("RecentGenerations(0) = %d samples, want all 5", len(all))
	}
}

func TestStoreRecentWrapsRing(t *testing.T) {
	s := NewStore("cpu")
	for i := 0; i < maxRecentSamples+10; i++ {
		s.RecordGeneration(sample("m", true, time.Duration(i)*time.Millisecond))
	}

	recent := s.RecentGenerations(0)
	if len(recent) != maxRecentSamples {
		t.Fatalf("ring size = %d, want %d", len(recent), maxRecentSamples)
	}
	want := time.Duration(maxRecentSamples+9) * time.Millisecond
	if recent[0].Duration != want {
		t.Errorf("newest = %v, want %v", recent[0].Duration, want)
	}
}

func TestStoreSystemStatus(t *testing.T) {
	s := NewStore("cuda")
	s.RecordGeneration(sample("m", true, time.Second))
	s.UpdateGPU(GPUMetrics{Name: "NVIDIA RTX 4090", Utilization: 55}, true)

	status := s.SystemStatus()
	if status.Device != "cuda" {
		t.Errorf("Device = %q", status.Device)
	}
	if !status.GPUAvailable || status.GPU.Name != "NVIDIA RTX 4090" {
		t.Errorf("GPU = %+v available=%v", status.GPU, status.GPUAvailable)
	}
	if status.Generations.Total != 1 {
		t.Errorf("Generations.Total = %d", status.Generations.Total)
	}
	if status.Uptime < 0 {
		t.Errorf("Uptime = %v", status.Uptime)
	}
}

func TestParseNvidiaSMIOutput(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    GPUMetrics
		wantErr bool
	}{
		{
			name:   "valid row",
			output: "NVIDIA GeForce RTX 4090, 45, 62, 8192, 24564\n",
			want: GPUMetrics{
				Name:        "NVIDIA GeForce RTX 4090",
				Utilization: 45,
				Temperature: 62,
				MemoryUsed:  8192 * 1024 * 1024,
				MemoryTotal: 24564 * 1024 * 1024,
				MemoryFree:  (24564 - 8192) * 1024 * 1024,
			},
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
		{
			name:    "too few fields",
			output:  "RTX, 45, 62\n",
			wantErr: true,
		},
		{
			name:    "non numeric",
			output:  "RTX, x, 62, 1, 2\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNvidiaSMIOutput(tt.output)
			if tt.wantErr {
				if err == nil {
					t.Error("parseNvidiaSMIOutput() = nil error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseNvidiaSMIOutput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseNvidiaSMIOutput() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// fakeReader scripts GPUReader outcomes.
type fakeReader struct {
	metrics GPUMetrics
	err     error
}

func (f *fakeReader) ReadGPUMetrics(ctx context.Context) (GPUMetrics, error) {
	return f.metrics, f.err
}

func TestDetectDevice(t *testing.T) {
	ctx := context.Background()

	if got := DetectDevice(ctx, &fakeReader{metrics: GPUMetrics{Name: "gpu"}}); got != "cuda" {
		t.Errorf("DetectDevice() = %q, want cuda", got)
	}
	if got := DetectDevice(ctx, &fakeReader{err: errors.New("no gpu")}); got != "cpu" {
		t.Errorf("DetectDevice() = %q, want cpu", got)
	}
}

func TestGPUCollector(t *testing.T) {
	store := NewStore("cuda")
	reader := &fakeReader{metrics: GPUMetrics{Name: "gpu", Utilization: 10}}

	c := NewGPUCollector(store, reader, time.Second)
	c.Start()
	c.Stop()

	status := store.SystemStatus()
	if !status.GPUAvailable || status.GPU.Name != "gpu" {
		t.Errorf("collector did not update store: %+v", status.GPU)
	}
}

func TestGPUCollectorUnavailable(t *testing.T) {
	store := NewStore("cpu")
	reader := &fakeReader{err: errors.New("nvidia-smi not found")}

	c := NewGPUCollector(store, reader, time.Second)
	c.Start()
	c.Stop()

	if store.SystemStatus().GPUAvailable {
		t.Error("GPUAvailable = true after failed read")
	}
}
