// Package studio serves the interactive side-by-side transformation UI:
// a single page with parameter sliders and a JSON API that takes and
// returns base64 images.
package studio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/db"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/logging"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/metrics"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/resultstore"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/shutdown"
)

// ServerConfig configures the studio server.
type ServerConfig struct {
	// Host to bind to; empty binds all interfaces.
	Host string

	// Port to listen on (default 7860).
	Port int

	// MaxBodyBytes caps JSON request bodies (default 32 MB; base64
	// inflates uploads by a third).
	MaxBodyBytes int64

	// Guard, when set, wraps each generation so graceful shutdown can
	// drain in-flight work. It should return shutdown.ErrClosed once
	// shutdown has begun; nil runs the generation unguarded.
	Guard func(ctx context.Context, name string, fn func(context.Context) error) error

	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the studio defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            7860,
		MaxBodyBytes:    32 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server hosts the studio page and its transform API.
type Server struct {
	config    ServerConfig
	logger    *logging.Logger
	generator *imagegen.Generator
	store     *resultstore.Store
	history   *db.HistoryRepository
	metrics   *metrics.Store

	httpServer *http.Server
}

// transformRequest is the studio wire format.
type transformRequest struct {
	// Image is a base64 PNG/JPEG, with or without a data URL prefix.
	Image          string `json:"image"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Model          string `json:"model"`
	// Strength is a pointer so an omitted field is distinguishable
	// from an explicit 0, which is a valid value.
	Strength      *float64 `json:"strength,omitempty"`
	GuidanceScale float64  `json:"guidance_scale"`
	Steps         int      `json:"num_inference_steps"`
	Seed          int64    `json:"seed"`
	Style         string   `json:"style,omitempty"`
}

// transformResponse mirrors the request with the output image and the
// path the result was saved under.
type transformResponse struct {
	Image          string  `json:"image"`
	Model          string  `json:"model"`
	Strength       float64 `json:"strength"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Steps          int     `json:"num_inference_steps"`
	Seed           int64   `json:"seed"`
	GenerationTime float64 `json:"generation_time"`
	OutputWidth    int     `json:"output_width"`
	OutputHeight   int     `json:"output_height"`
	Filename       string  `json:"filename,omitempty"`
	SavedTo        string  `json:"saved_to,omitempty"`
}

// NewServer wires the studio server over a generator. Every transform
// result is persisted through store; history may be nil to disable the
// database and metricsStore may be nil to disable counters.
func NewServer(
	config ServerConfig,
	generator *imagegen.Generator,
	store *resultstore.Store,
	history *db.HistoryRepository,
	metricsStore *metrics.Store,
	logger *logging.Logger,
) *Server {
	if config.Port == 0 {
		config.Port = 7860
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 32 << 20
	}

	s := &Server{
		config:    config,
		logger:    logger,
		generator: generator,
		store:     store,
		history:   history,
		metrics:   metricsStore,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/api/transform", s.handleTransform)
	mux.HandleFunc("/api/models", s.handleModels)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
		// Transformations run inside the request, so the write timeout
		// must cover a full generation.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens and serves until the server is shut down.
func (s *Server) Start() error {
	s.logger.Infow("studio server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("studio: serve: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, studioPage)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models": s.generator.Catalog().List(),
	})
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	img, err := decodeBase64Image(req.Image)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	genReq := imagegen.Request{
		Image:          img,
		Prompt:         strings.TrimSpace(req.Prompt),
		NegativePrompt: req.NegativePrompt,
		Model:          req.Model,
		Strength:       -1,
		GuidanceScale:  req.GuidanceScale,
		Steps:          req.Steps,
		Seed:           req.Seed,
	}
	if req.Strength != nil {
		genReq.Strength = *req.Strength
	}
	if genReq.Model == "" {
		genReq.Model = "stable-diffusion"
	}
	if genReq.Seed == 0 {
		genReq.Seed = -1
	}

	resp, err := s.generate(r.Context(), genReq)
	s.recordSample(genReq.Model, resp, err)
	if err != nil {
		s.logger.Errorw("studio generation failed", "model", genReq.Model, "error", err.Error())
		if errors.Is(err, shutdown.ErrClosed) {
			writeErr(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		var genErr *imagegen.GenerationError
		if errors.As(err, &genErr) {
			switch genErr.Code {
			case imagegen.ErrCodeInvalidRequest:
				writeErr(w, http.StatusBadRequest, genErr.Message)
			case imagegen.ErrCodeModelNotFound:
				writeErr(w, http.StatusNotFound, genErr.Message)
			case imagegen.ErrCodeBackendUnavailable:
				writeErr(w, http.StatusServiceUnavailable, genErr.Message)
			default:
				writeErr(w, http.StatusInternalServerError, genErr.Message)
			}
			return
		}
		writeErr(w, http.StatusInternalServerError, "generation failed")
		return
	}

	out := transformResponse{
		Model:          resp.Model,
		Strength:       resp.Strength,
		GuidanceScale:  resp.GuidanceScale,
		Steps:          resp.Steps,
		Seed:           resp.Seed,
		GenerationTime: resp.GenerationTime,
		OutputWidth:    resp.OutputWidth,
		OutputHeight:   resp.OutputHeight,
	}
	if s.store != nil {
		result, err := s.store.Save("studio", req.Style, resp)
		if err != nil {
			s.logger.Errorw("save result failed", "error", err.Error())
			writeErr(w, http.StatusInternalServerError, "could not store result")
			return
		}
		s.recordHistory(r.Context(), result)
		out.Filename = result.Metadata.Filename
		out.SavedTo = result.ImagePath
	}

	png, err := imaging.EncodePNG(resp.Image)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not encode result")
		return
	}
	out.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	writeJSON(w, http.StatusOK, out)
}

// generate runs the request through the shutdown guard when one is
// configured, so Shutdown waits for in-flight generations to finish.
func (s *Server) generate(ctx context.Context, req imagegen.Request) (*imagegen.Response, error) {
	if s.config.Guard == nil {
		return s.generator.Generate(ctx, req)
	}
	var resp *imagegen.Response
	err := s.config.Guard(ctx, "studio-transform", func(ctx context.Context) error {
		var genErr error
		resp, genErr = s.generator.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// recordSample folds the outcome into the metrics store.
func (s *Server) recordSample(model string, resp *imagegen.Response, genErr error) {
	if s.metrics == nil {
		return
	}
	sample := metrics.GenerationSample{Model: model, Success: genErr == nil}
	if resp != nil {
		sample.Duration = resp.Duration
	}
	s.metrics.RecordGeneration(sample)
}

// recordHistory inserts the saved result into the history database.
// Failures are logged, not surfaced: history is best effort.
func (s *Server) recordHistory(ctx context.Context, result *resultstore.Result) {
	if s.history == nil {
		return
	}
	m := result.Metadata
	_, err := s.history.Insert(ctx, db.GenerationRecord{
		Filename:       m.Filename,
		SourceName:     m.SourceName,
		Model:          m.Model,
		Style:          m.Style,
		Prompt:         m.Prompt,
		NegativePrompt: m.NegativePrompt,
		Strength:       m.Strength,
		GuidanceScale:  m.GuidanceScale,
		Steps:          m.Steps,
		Seed:           m.Seed,
		Device:         m.Device,
		OutputWidth:    m.OutputWidth,
		OutputHeight:   m.OutputHeight,
		GenerationTime: m.GenerationTime,
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		s.logger.Warnw("history insert failed", "error", err.Error())
	}
}

// decodeBase64Image decodes a base64 image, tolerating a data URL prefix.
func decodeBase64Image(s string) (image.Image, error) {
	if s == "" {
		return nil, errors.New("image is required")
	}
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
