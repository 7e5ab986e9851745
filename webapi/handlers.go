package webapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/db"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/metrics"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/resultstore"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/shutdown"
)

// apiError is the JSON error envelope.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// generateResponse is the JSON success envelope for /api/generate.
type generateResponse struct {
	Success  bool                 `json:"success"`
	Filename string               `json:"filename"`
	URL      string               `json:"url"`
	Image    string               `json:"image"`
	Metadata resultstore.Metadata `json:"metadata"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}

// errorStatus maps a generation error to an HTTP status code.
func errorStatus(err error) (int, string, string) {
	if errors.Is(err, shutdown.ErrClosed) {
		return http.StatusServiceUnavailable, "shutting_down", "server is shutting down"
	}
	var genErr *imagegen.GenerationError
	if !errors.As(err, &genErr) {
		return http.StatusInternalServerError, "internal_error", err.Error()
	}
	switch genErr.Code {
	case imagegen.ErrCodeInvalidRequest:
		return http.StatusBadRequest, genErr.Code, genErr.Message
	case imagegen.ErrCodeModelNotFound:
		return http.StatusNotFound, genErr.Code, genErr.Message
	case imagegen.ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable, genErr.Code, genErr.Message
	case imagegen.ErrCodeTimeout:
		return http.StatusGatewayTimeout, genErr.Code, genErr.Message
	default:
		return http.StatusInternalServerError, genErr.Code, genErr.Message
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleGenerate accepts a multipart form with an image file (or a
// sample name for demo runs) plus generation parameters, runs the
// transformation and stores the result.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Sprintf("upload exceeds the %d MB limit", s.config.MaxUploadBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	img, sourceName, err := s.inputImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req, err := requestFromForm(r, img)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := s.generate(r.Context(), req)
	s.recordSample(req.Model, resp, err)
	if err != nil {
		status, code, message := errorStatus(err)
		s.logger.Errorw("generation failed", "model", req.Model, "error", err.Error())
		writeError(w, status, code, message)
		return
	}

	result, err := s.store.Save(sourceName, req.Style, resp)
	if err != nil {
		s.logger.Errorw("save result failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error", "could not store result")
		return
	}
	s.recordHistory(r, result)

	png, err := imaging.EncodePNG(resp.Image)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not encode result")
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Success:  true,
		Filename: result.Metadata.Filename,
		URL:      "/results/" + result.Metadata.Filename,
		Image:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Metadata: result.Metadata,
	})
}

// inputImage extracts the input either from the uploaded "image" file
// or from the "sample" form value naming a built-in sample image.
func (s *Server) inputImage(r *http.Request) (image.Image, string, error) {
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()

		if !imaging.IsSupportedFormat(header.Filename) {
			return nil, "", fmt.Errorf("unsupported image format %q (supported: %s)",
				filepath.Ext(header.Filename), strings.Join(imaging.SupportedExtensions(), ", "))
		}

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		img, err := imaging.Decode(data)
		if err != nil {
			return nil, "", fmt.Errorf("decode upload: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
		if name == "" {
			name = "upload"
		}
		return img, name, nil
	}

	if sample := r.FormValue("sample"); sample != "" {
		img, err := imaging.GenerateSample(sample)
		if err != nil {
			return nil, "", err
		}
		return img, sample, nil
	}

	return nil, "", errors.New("no image uploaded: send an \"image\" file or a \"sample\" name")
}

// requestFromForm parses generation parameters. Absent numeric fields
// are left unspecified so the model's defaults apply; strength uses a
// negative sentinel because a submitted "0" is a legitimate value.
func requestFromForm(r *http.Request, img image.Image) (imagegen.Request, error) {
	req := imagegen.Request{
		Image:          img,
		Prompt:         strings.TrimSpace(r.FormValue("prompt")),
		NegativePrompt: strings.TrimSpace(r.FormValue("negative_prompt")),
		Model:          r.FormValue("model"),
		Style:          r.FormValue("style"),
		Strength:       -1,
		Seed:           -1,
	}
	if req.Model == "" {
		req.Model = "stable-diffusion"
	}

	var err error
	if v := r.FormValue("strength"); v != "" {
		if req.Strength, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("invalid strength %q", v)
		}
	}
	if v := r.FormValue("guidance_scale"); v != "" {
		if req.GuidanceScale, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("invalid guidance_scale %q", v)
		}
	}
	if v := r.FormValue("num_steps"); v != "" {
		if req.Steps, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("invalid num_steps %q", v)
		}
	}
	if v := r.FormValue("seed"); v != "" {
		if req.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return req, fmt.Errorf("invalid seed %q", v)
		}
	}
	return req, nil
}

// generate runs the request through the shutdown guard when one is
// configured, so Shutdown waits for in-flight generations to finish.
func (s *Server) generate(ctx context.Context, req imagegen.Request) (*imagegen.Response, error) {
	if s.config.Guard == nil {
		return s.generator.Generate(ctx, req)
	}
	var resp *imagegen.Response
	err := s.config.Guard(ctx, "webapi-generate", func(ctx context.Context) error {
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

// recordHistory inserts the result into the history database.
// Failures are logged, not surfaced: history is best effort.
func (s *Server) recordHistory(r *http.Request, result *resultstore.Result) {
	if s.history == nil {
		return
	}
	m := result.Metadata
	_, err := s.history.Insert(r.Context(), db.GenerationRecord{
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

// handleModels lists the catalog.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models": s.generator.Catalog().List(),
	})
}

// handleStatus reports backend reachability and metrics.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, 5*time.Second)
	defer cancel()

	backendOK := s.generator.Provider().Ping(ctx) == nil
	status := map[string]any{
		"status":   "ok",
		"provider": s.generator.Provider().Name(),
		"backend":  backendOK,
	}
	if s.metrics != nil {
		status["system"] = s.metrics.SystemStatus()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleDemoExamples lists the built-in demo examples.
func (s *Server) handleDemoExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"examples": imagegen.DemoExamples,
	})
}

// handleHistory returns recent generations, newest first.
// Falls back to the result store when no database is configured.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be 1-500")
			return
		}
		limit = n
	}

	if s.history != nil {
		records, err := s.history.Recent(r.Context(), limit)
		if err != nil {
			s.logger.Errorw("history query failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "internal_error", "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": records})
		return
	}

	results, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "history unavailable")
		return
	}
	if len(results) > limit {
		results = results[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": results})
}

// handleResultFile serves a stored output image.
func (s *Server) handleResultFile(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/results/")
	path, err := s.store.Open(filename)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no such result")
		return
	}
	http.ServeFile(w, r, path)
}

// handleIndex serves the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "no such page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexPage)
}

// handleDemoPage serves the demo gallery page.
func (s *Server) handleDemoPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, demoPage)
}

// handleLogin renders the login form and checks submitted passwords.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, loginPage)
	case http.MethodPost:
		password := r.FormValue("password")
		if err := VerifyPassword(s.config.PasswordHash, password); err != nil {
			s.logger.Warnw("failed login attempt", "remote", r.RemoteAddr)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, loginPage)
			return
		}
		token := s.sessions.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET or POST required")
	}
}

// handleLogout revokes the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.Revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// contextWithTimeout derives a bounded context from the request.
func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
