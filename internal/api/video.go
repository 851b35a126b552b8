package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"

	"github.com/tgr-cmp/ytrelay/internal/pipeline"
	"github.com/tgr-cmp/ytrelay/internal/provider"
	"github.com/tgr-cmp/ytrelay/internal/selector"
	"github.com/tgr-cmp/ytrelay/internal/utils"
)

const maxFilenameLen = 100

type formatInfo struct {
	Itag      int    `json:"itag"`
	Quality   string `json:"quality,omitempty"`
	Container string `json:"container"`
	Codecs    string `json:"codecs"`
	HasVideo  bool   `json:"hasVideo"`
	HasAudio  bool   `json:"hasAudio"`
}

type infoResponse struct {
	Title           string       `json:"title"`
	Author          string       `json:"author"`
	DurationSeconds int          `json:"durationSeconds"`
	ViewCount       int          `json:"viewCount,omitempty"`
	ThumbnailURL    string       `json:"thumbnailUrl"`
	Formats         []formatInfo `json:"formats"`
}

func (a *ApiManagerCtx) VideoInfo(w http.ResponseWriter, r *http.Request) {
	meta, err := a.pipeline.Info(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		outcome := pipeline.OutcomeOf(err)
		writeJSON(w, statusOf(outcome), errorResponse{
			Error:   errorTextOf(outcome),
			Message: err.Error(),
		})
		return
	}

	payload := infoResponse{
		Title:           meta.Title,
		Author:          meta.Author,
		DurationSeconds: meta.Duration,
		ViewCount:       meta.Views,
		ThumbnailURL:    meta.Thumbnail,
		Formats:         make([]formatInfo, 0, len(meta.Renditions)),
	}
	for _, rendition := range meta.Renditions {
		payload.Formats = append(payload.Formats, formatInfo{
			Itag:      rendition.Itag,
			Quality:   rendition.Quality,
			Container: rendition.Container,
			Codecs:    rendition.Codecs,
			HasVideo:  rendition.HasVideo,
			HasAudio:  rendition.HasAudio,
		})
	}

	writeJSON(w, http.StatusOK, payload)
}

func (a *ApiManagerCtx) VideoDownload(w http.ResponseWriter, r *http.Request) {
	req := pipeline.Request{
		ID:        middleware.GetReqID(r.Context()),
		URL:       r.URL.Query().Get("url"),
		Selection: pipeline.SelectBestMuxed,
	}

	// explicit quality switches to the two-tier policy match
	if quality := r.URL.Query().Get("quality"); quality != "" {
		req.Selection = pipeline.SelectPolicy
		req.Policy = selector.Policy{
			Quality:                quality,
			Container:              "mp4",
			RequireVideo:           true,
			RequireAudio:           true,
			AllowContainerFallback: true,
		}
	}

	a.download(w, r, req, func(meta *provider.Metadata, rendition provider.Rendition) {
		name := utils.SanitizeFilename(meta.Title, maxFilenameLen)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+rendition.Container))
		w.Header().Set("Content-Type", "video/"+rendition.Container)
	})
}

func (a *ApiManagerCtx) AudioDownload(w http.ResponseWriter, r *http.Request) {
	req := pipeline.Request{
		ID:        middleware.GetReqID(r.Context()),
		URL:       r.URL.Query().Get("url"),
		Selection: pipeline.SelectBestAudio,
	}

	a.download(w, r, req, func(meta *provider.Metadata, rendition provider.Rendition) {
		name := utils.SanitizeFilename(meta.Title, maxFilenameLen)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".mp3"))
	})
}

// download runs the pipeline with the response body as sink. Response
// headers are committed only once the upstream stream is open; failures
// after that point can only be logged, a second response on a stream
// that already carries bytes would corrupt it.
func (a *ApiManagerCtx) download(w http.ResponseWriter, r *http.Request, req pipeline.Request, setHeaders func(*provider.Metadata, provider.Rendition)) {
	streaming := false

	result := a.pipeline.Run(r.Context(), req, func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error) {
		setHeaders(meta, rendition)
		if size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}

		streaming = true
		return w, nil
	})

	if result.Outcome == pipeline.OutcomeDelivered {
		return
	}

	if streaming {
		a.logger.Warn().Err(result.Err).Str("url", req.URL).Int64("bytes", result.Bytes).Msg("stream aborted mid-relay")
		return
	}

	writeJSON(w, statusOf(result.Outcome), errorResponse{
		Error:   errorTextOf(result.Outcome),
		Message: result.Err.Error(),
	})
}
