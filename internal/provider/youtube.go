package provider

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tgr-cmp/ytrelay/internal/creds"
)

// YouTubeCtx adapts the kkdai youtube client to the Provider contract.
type YouTubeCtx struct {
	logger       zerolog.Logger
	fetchTimeout time.Duration
}

func NewYouTube(fetchTimeout time.Duration) *YouTubeCtx {
	return &YouTubeCtx{
		logger:       log.With().Str("module", "youtube").Logger(),
		fetchTimeout: fetchTimeout,
	}
}

func (y *YouTubeCtx) ValidateURL(raw string) bool {
	_, err := youtube.ExtractVideoID(raw)
	return err == nil
}

func (y *YouTubeCtx) Fetch(ctx context.Context, rawURL string, bundle *creds.Bundle) (*Metadata, error) {
	client := y.client(bundle, y.fetchTimeout)

	video, err := client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, mapError(err)
	}

	meta := &Metadata{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: int(video.Duration.Seconds()),
		Views:    video.Views,
		native:   video,
	}
	if len(video.Thumbnails) > 0 {
		meta.Thumbnail = video.Thumbnails[0].URL
	}

	for _, f := range video.Formats {
		container, codecs := splitMime(f.MimeType)
		meta.Renditions = append(meta.Renditions, Rendition{
			Itag:      f.ItagNo,
			Quality:   f.QualityLabel,
			Container: container,
			Codecs:    codecs,
			Bitrate:   f.Bitrate,
			HasVideo:  f.QualityLabel != "",
			HasAudio:  f.AudioChannels > 0,
		})
	}

	return meta, nil
}

func (y *YouTubeCtx) Open(ctx context.Context, meta *Metadata, rendition Rendition, bundle *creds.Bundle) (io.ReadCloser, int64, error) {
	// no global timeout on stream downloads, the request context
	// governs cancellation
	client := y.client(bundle, 0)

	video, ok := meta.native.(*youtube.Video)
	if !ok {
		var err error
		video, err = client.GetVideoContext(ctx, meta.ID)
		if err != nil {
			return nil, 0, mapError(err)
		}
	}

	var format *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == rendition.Itag {
			format = &video.Formats[i]
			break
		}
	}
	if format == nil {
		return nil, 0, Errorf(KindNotFound, "itag %d not present upstream", rendition.Itag)
	}

	stream, size, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, 0, mapError(err)
	}

	return stream, size, nil
}

func (y *YouTubeCtx) client(bundle *creds.Bundle, timeout time.Duration) *youtube.Client {
	httpClient := &http.Client{Timeout: timeout}
	if bundle.Len() > 0 {
		httpClient = bundle.Client(timeout)
	}

	return &youtube.Client{HTTPClient: httpClient}
}

// mapError translates the client's structured errors into failure
// kinds. Message matching is kept only as a last resort for errors the
// library does not type.
func mapError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return NewError(KindDenied, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return NewError(KindInvalidInput, err)
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return NewError(KindTransient, err)
	}

	var status *youtube.ErrPlayabiltyStatus
	if errors.As(err, &status) {
		if containsAny(status.Reason, "unavailable", "removed", "does not exist") {
			return NewError(KindNotFound, err)
		}
		return NewError(KindDenied, err)
	}

	var code youtube.ErrUnexpectedStatusCode
	if errors.As(err, &code) {
		switch int(code) {
		case http.StatusForbidden, http.StatusUnauthorized:
			return NewError(KindDenied, err)
		case http.StatusNotFound, http.StatusGone:
			return NewError(KindNotFound, err)
		default:
			return NewError(KindTransient, err)
		}
	}

	return NewError(classifyMessage(err.Error()), err)
}

// classifyMessage is a heuristic fallback for errors the library does
// not type. Known to misclassify novel upstream wording, so it runs
// only after all structured checks failed.
func classifyMessage(msg string) Kind {
	switch {
	case containsAny(msg, "private", "login required", "sign in", "consent", "age"):
		return KindDenied
	case containsAny(msg, "unavailable", "not found", "not exist"):
		return KindNotFound
	default:
		return KindTransient
	}
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

func splitMime(mimeType string) (container string, codecs string) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", ""
	}

	if i := strings.Index(mediaType, "/"); i >= 0 {
		container = mediaType[i+1:]
	}

	return container, params["codecs"]
}
