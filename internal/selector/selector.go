package selector

import (
	"strconv"
	"strings"

	"github.com/tgr-cmp/ytrelay/internal/provider"
)

// Policy drives the deterministic rendition choice. An empty field
// means "no constraint".
type Policy struct {
	Quality   string
	Container string

	RequireVideo bool
	RequireAudio bool

	// permit a second pass without the container constraint when the
	// exact combination is not offered upstream
	AllowContainerFallback bool
}

// Tier reports which pass produced the match, for diagnostics.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierContainerFallback
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierContainerFallback:
		return "container_fallback"
	default:
		return "none"
	}
}

// Select picks one rendition. The first pass honors the full policy;
// the fallback pass relaxes only the container constraint. Both passes
// keep provider order, so equal candidates are disambiguated by order
// alone and the result is stable.
func Select(renditions []provider.Rendition, policy Policy) (provider.Rendition, Tier, error) {
	for _, r := range renditions {
		if matches(r, policy, true) {
			return r, TierExact, nil
		}
	}

	if policy.AllowContainerFallback && policy.Container != "" {
		for _, r := range renditions {
			if matches(r, policy, false) {
				return r, TierContainerFallback, nil
			}
		}
	}

	return provider.Rendition{}, TierNone, provider.Errorf(provider.KindNotFound,
		"no %s rendition with the requested tracks available", policy.Quality)
}

func matches(r provider.Rendition, policy Policy, withContainer bool) bool {
	if policy.Quality != "" && r.Quality != policy.Quality {
		return false
	}
	if policy.RequireVideo && !r.HasVideo {
		return false
	}
	if policy.RequireAudio && !r.HasAudio {
		return false
	}
	if withContainer && policy.Container != "" && r.Container != policy.Container {
		return false
	}

	return true
}

// BestMuxed picks the highest resolution rendition that carries both
// tracks, bitrate deciding between equal labels. Provider order wins
// ties.
func BestMuxed(renditions []provider.Rendition) (provider.Rendition, error) {
	var best provider.Rendition
	found := false

	for _, r := range renditions {
		if !r.HasVideo || !r.HasAudio {
			continue
		}
		if !found || better(r, best) {
			best = r
			found = true
		}
	}

	if !found {
		return provider.Rendition{}, provider.Errorf(provider.KindNotFound,
			"no combined audio+video rendition available")
	}

	return best, nil
}

// BestAudio picks the highest bitrate audio-only rendition.
func BestAudio(renditions []provider.Rendition) (provider.Rendition, error) {
	var best provider.Rendition
	found := false

	for _, r := range renditions {
		if !r.HasAudio || r.HasVideo {
			continue
		}
		if !found || r.Bitrate > best.Bitrate {
			best = r
			found = true
		}
	}

	if !found {
		return provider.Rendition{}, provider.Errorf(provider.KindNotFound,
			"no audio-only rendition available")
	}

	return best, nil
}

func better(a provider.Rendition, b provider.Rendition) bool {
	if ra, rb := qualityRank(a.Quality), qualityRank(b.Quality); ra != rb {
		return ra > rb
	}

	return a.Bitrate > b.Bitrate
}

// qualityRank extracts the leading vertical resolution from labels like
// "360p" or "1080p60".
func qualityRank(label string) int {
	i := 0
	for i < len(label) && label[i] >= '0' && label[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(label[:i]))
	if err != nil {
		return 0
	}

	return n
}
