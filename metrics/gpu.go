package metrics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GPUReader reads one GPU metrics snapshot.
// The abstraction exists so tests can supply a mock reader.
type GPUReader interface {
	ReadGPUMetrics(ctx context.Context) (GPUMetrics, error)
}

// NvidiaSMIReader reads GPU state by executing nvidia-smi.
type NvidiaSMIReader struct {
	// Path to the nvidia-smi executable; "nvidia-smi" resolves via PATH.
	Path string
}

// ReadGPUMetrics implements GPUReader.
func (r *NvidiaSMIReader) ReadGPUMetrics(ctx context.Context) (GPUMetrics, error) {
	path := r.Path
	if path == "" {
		path = "nvidia-smi"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path,
		"--query-gpu=name,utilization.gpu,temperature.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return GPUMetrics{}, fmt.Errorf("metrics: nvidia-smi failed: %w (stderr: %s)", err, stderr.String())
	}

	return parseNvidiaSMIOutput(stdout.String())
}

// parseNvidiaSMIOutput parses one CSV row of nvidia-smi output.
// Multi-GPU hosts report one row per device; only the first is used.
func parseNvidiaSMIOutput(output string) (GPUMetrics, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return GPUMetrics{}, fmt.Errorf("metrics: empty nvidia-smi output")
	}

	record, err := csv.NewReader(strings.NewReader(output)).Read()
	if err != nil {
		return GPUMetrics{}, fmt.Errorf("metrics: parse nvidia-smi CSV: %w", err)
	}
	if len(record) < 5 {
		return GPUMetrics{}, fmt.Errorf("metrics: unexpected field count %d, want 5", len(record))
	}

	util, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return GPUMetrics{}, fmt.Errorf("metrics: parse utilization: %w", err)
	}
	temp, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return GPUMetrics{}, fmt.Errorf("metrics: parse temperature: %w", err)
	}
	memUsedMiB, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return GPUMetrics{}, fmt.Errorf("metrics: parse memory used: %w", err)
	}
	memTotalMiB, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		return GPUMetrics{}, fmt.Errorf("metrics: parse memory total: %w", err)
	}

	const mib = 1024 * 1024
	memUsed := int64(memUsedMiB * mib)
	memTotal := int64(memTotalMiB * mib)
	return GPUMetrics{
		Name:        strings.TrimSpace(record[0]),
		Utilization: util,
		Temperature: temp,
		MemoryUsed:  memUsed,
		MemoryTotal: memTotal,
		MemoryFree:  memTotal - memUsed,
	}, nil
}

// DetectDevice probes for a working GPU and returns "cuda" or "cpu".
// Used to resolve the DEVICE=auto setting at startup.
func DetectDevice(ctx context.Context, reader GPUReader) string {
	if reader == nil {
		reader = &NvidiaSMIReader{}
	}
	if _, err := reader.ReadGPUMetrics(ctx); err != nil {
		return "cpu"
	}
	return "cuda"
}

// GPUCollector periodically samples GPU metrics into a Store.
type GPUCollector struct {
	interval time.Duration
	reader   GPUReader
	store    *Store

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGPUCollector creates a collector that updates store every interval.
// Intervals under a second are clamped to 5s to keep nvidia-smi cheap.
func NewGPUCollector(store *Store, reader GPUReader, interval time.Duration) *GPUCollector {
	if interval < time.Second {
		interval = 5 * time.Second
	}
	if reader == nil {
		reader = &NvidiaSMIReader{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GPUCollector{
		interval: interval,
		reader:   reader,
		store:    store,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins collection in a background goroutine.
func (c *GPUCollector) Start() {
	c.wg.Add(1)
	go c.loop()
}

// Stop halts collection and waits for the goroutine to exit.
func (c *GPUCollector) Stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *GPUCollector) loop() {
	defer c.wg.Done()

	c.collectOnce()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collectOnce()
		}
	}
}

func (c *GPUCollector) collectOnce() {
	gpu, err := c.reader.ReadGPUMetrics(c.ctx)
	if err != nil {
		c.store.UpdateGPU(GPUMetrics{}, false)
		return
	}
	c.store.UpdateGPU(gpu, true)
}
