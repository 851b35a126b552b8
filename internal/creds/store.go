package creds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tgr-cmp/ytrelay/internal/metrics"
)

// remote payloads larger than this are considered malformed
const maxPayloadSize = 1 << 20

const fetchTimeout = 15 * time.Second

// StoreCtx owns the current credential bundle. Sources are attempted in
// priority order: an inline JSON payload from configuration first, then
// a remote URL. A load that fails on every source leaves the service
// unauthenticated instead of failing it.
type StoreCtx struct {
	logger  zerolog.Logger
	metrics *metrics.MetricsCtx

	inline    string
	remoteURL string
	client    *http.Client

	mu     sync.RWMutex
	bundle *Bundle
}

func NewStore(inline string, remoteURL string, metrics *metrics.MetricsCtx) *StoreCtx {
	return &StoreCtx{
		logger:    log.With().Str("module", "creds").Logger(),
		metrics:   metrics,
		inline:    inline,
		remoteURL: remoteURL,
		client:    &http.Client{Timeout: fetchTimeout},
	}
}

// Configured reports whether any credential source is set at all.
func (s *StoreCtx) Configured() bool {
	return s.inline != "" || s.remoteURL != ""
}

// Load attempts each configured source once, in priority order, and
// swaps the current bundle on success. Failures fall through to the
// next source; if all sources fail the current value is left untouched
// (nil at startup) and nil is returned.
func (s *StoreCtx) Load(ctx context.Context) *Bundle {
	if s.inline != "" {
		bundle, err := ParseBundle([]byte(s.inline))
		if err != nil {
			s.logger.Warn().Err(err).Msg("inline credential bundle is malformed")
			s.record("inline", "error")
		} else {
			s.logger.Info().Int("entries", bundle.Len()).Msg("credential bundle loaded from inline config")
			s.record("inline", "ok")
			s.swap(bundle)
			return bundle
		}
	}

	if s.remoteURL != "" {
		bundle, err := s.fetch(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", s.remoteURL).Msg("unable to load credential bundle from url")
			s.record("remote", "error")
		} else {
			s.logger.Info().Int("entries", bundle.Len()).Str("url", s.remoteURL).Msg("credential bundle loaded from url")
			s.record("remote", "ok")
			s.swap(bundle)
			return bundle
		}
	}

	return s.Snapshot()
}

// Snapshot returns the currently loaded bundle, or nil when operating
// unauthenticated. Safe to call concurrently with Load.
func (s *StoreCtx) Snapshot() *Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bundle
}

func (s *StoreCtx) swap(bundle *Bundle) {
	s.mu.Lock()
	s.bundle = bundle
	s.mu.Unlock()
}

func (s *StoreCtx) fetch(ctx context.Context) (*Bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxPayloadSize))
	if err != nil {
		return nil, err
	}

	return ParseBundle(data)
}

func (s *StoreCtx) record(source string, result string) {
	if s.metrics != nil {
		s.metrics.CredentialLoad(source, result)
	}
}
