package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tgr-cmp/ytrelay/internal/metrics"
	"github.com/tgr-cmp/ytrelay/internal/pipeline"
)

type ApiManagerCtx struct {
	logger   zerolog.Logger
	pipeline *pipeline.PipelineCtx
	metrics  *metrics.MetricsCtx
}

func New(pipeline *pipeline.PipelineCtx, metrics *metrics.MetricsCtx) *ApiManagerCtx {
	return &ApiManagerCtx{
		logger:   log.With().Str("module", "api").Logger(),
		pipeline: pipeline,
		metrics:  metrics,
	}
}

func (a *ApiManagerCtx) Mount(r *chi.Mux) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		//nolint
		_, _ = w.Write([]byte("pong"))
	})

	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/video/info", a.VideoInfo)
		r.Get("/video/download", a.VideoDownload)
		r.Get("/audio/download", a.AudioDownload)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint
	_ = json.NewEncoder(w).Encode(payload)
}

// statusOf maps a pipeline outcome to an http status: 4xx for caller
// mistakes, 5xx for provider or relay failures.
func statusOf(outcome pipeline.Outcome) int {
	switch outcome {
	case pipeline.OutcomeInvalidInput:
		return http.StatusBadRequest
	case pipeline.OutcomeNotFound:
		return http.StatusNotFound
	case pipeline.OutcomeDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errorTextOf(outcome pipeline.Outcome) string {
	switch outcome {
	case pipeline.OutcomeInvalidInput:
		return "Invalid YouTube URL"
	case pipeline.OutcomeNotFound:
		return "Video or requested quality not available"
	case pipeline.OutcomeDenied:
		return "Video is private or requires login"
	default:
		return "Failed to process video"
	}
}
