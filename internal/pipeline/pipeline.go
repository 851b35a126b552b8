package pipeline

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tgr-cmp/ytrelay/internal/creds"
	"github.com/tgr-cmp/ytrelay/internal/metrics"
	"github.com/tgr-cmp/ytrelay/internal/provider"
	"github.com/tgr-cmp/ytrelay/internal/relay"
	"github.com/tgr-cmp/ytrelay/internal/selector"
)

// Outcome is the single per-request verdict. The core never retries;
// retrying, if any, is caller policy.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeInvalidInput
	OutcomeNotFound
	OutcomeDenied
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeDenied:
		return "denied"
	default:
		return "transient"
	}
}

// Selection names how the rendition is chosen for a request.
type Selection int

const (
	// two-tier policy match (quality/tracks/container with optional
	// container fallback)
	SelectPolicy Selection = iota
	// highest resolution rendition carrying both tracks
	SelectBestMuxed
	// highest bitrate audio-only rendition
	SelectBestAudio
)

type Request struct {
	ID        string
	URL       string
	Selection Selection
	Policy    selector.Policy
}

type Result struct {
	Outcome   Outcome
	Metadata  *provider.Metadata
	Rendition provider.Rendition
	Tier      selector.Tier
	Bytes     int64
	Err       error
}

// OpenSink is invoked once the upstream stream is open and bytes are
// about to flow; the front end commits its response (headers, upload)
// here and returns the destination writer.
type OpenSink func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error)

// PipelineCtx sequences one request through its stages: validate,
// fetch metadata, select rendition, open stream, relay. Stages run
// strictly in order and the first failure short circuits with a tagged
// outcome.
type PipelineCtx struct {
	logger   zerolog.Logger
	provider provider.Provider
	store    *creds.StoreCtx
	metrics  *metrics.MetricsCtx
}

func New(prov provider.Provider, store *creds.StoreCtx, metrics *metrics.MetricsCtx) *PipelineCtx {
	return &PipelineCtx{
		logger:   log.With().Str("module", "pipeline").Logger(),
		provider: prov,
		store:    store,
		metrics:  metrics,
	}
}

// Validate is the fast local check used by front ends to decide whether
// a piece of text is a supported video URL at all. No network.
func (p *PipelineCtx) Validate(rawURL string) bool {
	return p.provider.ValidateURL(rawURL)
}

// Info runs the pipeline up to the metadata stage only.
func (p *PipelineCtx) Info(ctx context.Context, rawURL string) (*provider.Metadata, error) {
	if !p.provider.ValidateURL(rawURL) {
		p.metrics.Request(OutcomeInvalidInput.String())
		return nil, provider.Errorf(provider.KindInvalidInput, "not a recognized video url")
	}

	meta, err := p.provider.Fetch(ctx, rawURL, p.store.Snapshot())
	if err != nil {
		p.metrics.Request(OutcomeOf(err).String())
		return nil, err
	}

	p.metrics.Request(OutcomeDelivered.String())
	return meta, nil
}

// Run executes the full pipeline for one request and reports exactly
// one outcome.
func (p *PipelineCtx) Run(ctx context.Context, req Request, open OpenSink) Result {
	logger := p.logger.With().Str("request", req.ID).Str("url", req.URL).Logger()

	if !p.provider.ValidateURL(req.URL) {
		return p.fail(logger, Result{
			Outcome: OutcomeInvalidInput,
			Err:     provider.Errorf(provider.KindInvalidInput, "not a recognized video url"),
		})
	}

	// read-only snapshot, a concurrent refresh may replace the bundle
	// but never mutate it under us
	bundle := p.store.Snapshot()

	meta, err := p.provider.Fetch(ctx, req.URL, bundle)
	if err != nil {
		return p.fail(logger, Result{Outcome: OutcomeOf(err), Err: err})
	}
	logger = logger.With().Str("title", meta.Title).Logger()

	rendition, tier, err := p.selectRendition(meta, req)
	if err != nil {
		return p.fail(logger, Result{Outcome: OutcomeOf(err), Metadata: meta, Err: err})
	}
	logger.Info().
		Int("itag", rendition.Itag).
		Str("quality", rendition.Quality).
		Str("container", rendition.Container).
		Str("tier", tier.String()).
		Msg("rendition selected")

	stream, size, err := p.provider.Open(ctx, meta, rendition, bundle)
	if err != nil {
		return p.fail(logger, Result{Outcome: OutcomeOf(err), Metadata: meta, Rendition: rendition, Tier: tier, Err: err})
	}
	defer stream.Close()

	sink, err := open(meta, rendition, size)
	if err != nil {
		return p.fail(logger, Result{Outcome: OutcomeTransient, Metadata: meta, Rendition: rendition, Tier: tier, Err: err})
	}

	p.metrics.RelayStarted()
	n, err := relay.Copy(ctx, sink, stream)
	p.metrics.RelayFinished()
	p.metrics.RelayedBytes(n)

	result := Result{
		Outcome:   OutcomeDelivered,
		Metadata:  meta,
		Rendition: rendition,
		Tier:      tier,
		Bytes:     n,
	}
	if err != nil {
		// sink already received bytes, the front end must not send a
		// second response on top of them
		result.Outcome = OutcomeTransient
		result.Err = err
		return p.fail(logger, result)
	}

	p.metrics.Request(OutcomeDelivered.String())
	logger.Info().Int64("bytes", n).Msg("stream delivered")
	return result
}

func (p *PipelineCtx) selectRendition(meta *provider.Metadata, req Request) (provider.Rendition, selector.Tier, error) {
	switch req.Selection {
	case SelectBestMuxed:
		rendition, err := selector.BestMuxed(meta.Renditions)
		return rendition, selector.TierNone, err
	case SelectBestAudio:
		rendition, err := selector.BestAudio(meta.Renditions)
		return rendition, selector.TierNone, err
	default:
		return selector.Select(meta.Renditions, req.Policy)
	}
}

func (p *PipelineCtx) fail(logger zerolog.Logger, result Result) Result {
	p.metrics.Request(result.Outcome.String())
	logger.Warn().Err(result.Err).Str("outcome", result.Outcome.String()).Int64("bytes", result.Bytes).Msg("request failed")
	return result
}

func OutcomeOf(err error) Outcome {
	switch provider.KindOf(err) {
	case provider.KindInvalidInput:
		return OutcomeInvalidInput
	case provider.KindNotFound:
		return OutcomeNotFound
	case provider.KindDenied:
		return OutcomeDenied
	default:
		return OutcomeTransient
	}
}
