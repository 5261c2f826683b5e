package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionResponse, error)
	StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest, w io.Writer, flush func()) error
	Embeddings(ctx context.Context, req types.EmbeddingsRequest) (types.EmbeddingsResponse, error)
	Images(ctx context.Context, req types.ImagesGenerationRequest) ([][]byte, error)
	ListModels() types.ModelsListResponse
	LoadModel(kind, name, path string) error
	UnloadModel(kind, name string) error
	Ready() bool
}

// Options configures the HTTP layer.
type Options struct {
	// BaseCtx is canceled on process shutdown; handlers join it with the
	// request context so shutdown cancels in-flight work too.
	BaseCtx context.Context
	// APIKeys guards the /v1 and /admin groups. Empty disables auth.
	APIKeys []string
	// MaxBodyBytes limits JSON request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
	// CORS enables a permissive-by-config CORS layer.
	CORSEnabled        bool
	CORSAllowedOrigins []string
	Logger             zerolog.Logger
}

func (o *Options) baseCtx() context.Context {
	if o.BaseCtx == nil {
		return context.Background()
	}
	return o.BaseCtx
}

func (o *Options) maxBodyBytes() int64 {
	if o.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return o.MaxBodyBytes
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

type server struct {
	svc  Service
	opts Options
}

// NewMux builds the HTTP router around svc.
func NewMux(svc Service, opts Options) http.Handler {
	s := &server{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if opts.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Log-Level"},
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(requestLogger(opts.Logger))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	auth := apiKeyAuth(opts.APIKeys)

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)
		r.Post("/chat/completions", s.handleChatCompletions)
		r.Post("/embeddings", s.handleEmbeddings)
		r.Post("/images/generations", s.handleImages)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth)
		r.Get("/models", s.handleListModels)
		r.Post("/models/load", s.handleLoadModel)
		r.Post("/models/unload", s.handleUnloadModel)
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	return r
}

// decodeJSON enforces the content type and body size limit before decoding.
func (s *server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.maxBodyBytes())
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.ChatCompletionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "messages is required")
		return
	}

	ctx, cancel := joinContexts(s.opts.baseCtx(), r.Context())
	defer cancel()

	if req.Stream {
		s.streamChat(ctx, w, r, req)
		return
	}

	resp, err := s.svc.ChatCompletion(ctx, req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeMappedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.opts.Logger.Error().Err(err).Msg("encode chat completion response")
	}
}

func (s *server) streamChat(ctx context.Context, w http.ResponseWriter, r *http.Request, req types.ChatCompletionRequest) {
	// Headers may still be reset to JSON if the engine fails before the
	// first frame is written.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}

	err := s.svc.StreamChatCompletion(ctx, req, w, flush)
	if err == nil {
		return
	}
	if engine.IsStreamAborted(err) || r.Context().Err() != nil {
		// Frames already hit the wire; nothing sane to send.
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeMappedError(w, err)
}

func (s *server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req types.EmbeddingsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Input) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "input is required")
		return
	}

	ctx, cancel := joinContexts(s.opts.baseCtx(), r.Context())
	defer cancel()

	resp, err := s.svc.Embeddings(ctx, req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeMappedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *server) handleImages(w http.ResponseWriter, r *http.Request) {
	var req types.ImagesGenerationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	ctx, cancel := joinContexts(s.opts.baseCtx(), r.Context())
	defer cancel()

	images, err := s.svc.Images(ctx, req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeMappedError(w, err)
		return
	}
	resp := types.ImagesGenerationResponse{Created: time.Now().Unix()}
	for _, img := range images {
		resp.Data = append(resp.Data, types.ImageDataObject{
			B64JSON: base64.StdEncoding.EncodeToString(img),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *server) handleListModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.svc.ListModels())
}

func (s *server) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadModelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.LoadModel(req.Kind, req.Model, req.Path); err != nil {
		writeMappedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "loaded", "model": req.Model})
}

func (s *server) handleUnloadModel(w http.ResponseWriter, r *http.Request) {
	var req types.UnloadModelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.UnloadModel(req.Kind, req.Model); err != nil {
		writeMappedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "unloaded", "model": req.Model})
}
