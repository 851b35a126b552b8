package selector

import (
	"testing"

	"github.com/tgr-cmp/ytrelay/internal/provider"
)

func TestSelect(t *testing.T) {
	policy := Policy{
		Quality:                "360p",
		Container:              "mp4",
		RequireVideo:           true,
		RequireAudio:           true,
		AllowContainerFallback: true,
	}

	tests := []struct {
		name       string
		renditions []provider.Rendition
		policy     Policy
		wantItag   int
		wantTier   Tier
		wantErr    bool
	}{
		{
			name: "exact match",
			renditions: []provider.Rendition{
				{Itag: 140, Quality: "", Container: "mp4", HasAudio: true},
				{Itag: 18, Quality: "360p", Container: "mp4", HasVideo: true, HasAudio: true},
				{Itag: 22, Quality: "720p", Container: "mp4", HasVideo: true, HasAudio: true},
			},
			policy:   policy,
			wantItag: 18,
			wantTier: TierExact,
		},
		{
			name: "first exact match wins in provider order",
			renditions: []provider.Rendition{
				{Itag: 101, Quality: "360p", Container: "mp4", HasVideo: true, HasAudio: true},
				{Itag: 102, Quality: "360p", Container: "mp4", HasVideo: true, HasAudio: true},
			},
			policy:   policy,
			wantItag: 101,
			wantTier: TierExact,
		},
		{
			name: "container fallback",
			renditions: []provider.Rendition{
				{Itag: 247, Quality: "720p", Container: "webm", HasVideo: true},
				{Itag: 43, Quality: "360p", Container: "webm", HasVideo: true, HasAudio: true},
			},
			policy:   policy,
			wantItag: 43,
			wantTier: TierContainerFallback,
		},
		{
			name: "video only rendition is not enough",
			renditions: []provider.Rendition{
				{Itag: 134, Quality: "360p", Container: "mp4", HasVideo: true},
			},
			policy:  policy,
			wantErr: true,
		},
		{
			name: "fallback disabled",
			renditions: []provider.Rendition{
				{Itag: 43, Quality: "360p", Container: "webm", HasVideo: true, HasAudio: true},
			},
			policy: Policy{
				Quality:      "360p",
				Container:    "mp4",
				RequireVideo: true,
				RequireAudio: true,
			},
			wantErr: true,
		},
		{
			name:       "empty renditions list",
			renditions: nil,
			policy:     policy,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier, err := Select(tt.renditions, tt.policy)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Select() expected error, got itag %d", got.Itag)
				}
				if kind := provider.KindOf(err); kind != provider.KindNotFound {
					t.Errorf("Select() error kind = %v, want %v", kind, provider.KindNotFound)
				}
				return
			}

			if err != nil {
				t.Fatalf("Select() unexpected error: %v", err)
			}
			if got.Itag != tt.wantItag {
				t.Errorf("Select() itag = %d, want %d", got.Itag, tt.wantItag)
			}
			if tier != tt.wantTier {
				t.Errorf("Select() tier = %v, want %v", tier, tt.wantTier)
			}
		})
	}
}

func TestBestMuxed(t *testing.T) {
	tests := []struct {
		name       string
		renditions []provider.Rendition
		wantItag   int
		wantErr    bool
	}{
		{
			name: "highest resolution wins",
			renditions: []provider.Rendition{
				{Itag: 18, Quality: "360p", HasVideo: true, HasAudio: true},
				{Itag: 22, Quality: "720p", HasVideo: true, HasAudio: true},
				{Itag: 137, Quality: "1080p", HasVideo: true},
			},
			wantItag: 22,
		},
		{
			name: "bitrate breaks equal labels",
			renditions: []provider.Rendition{
				{Itag: 1, Quality: "720p", Bitrate: 900, HasVideo: true, HasAudio: true},
				{Itag: 2, Quality: "720p", Bitrate: 1200, HasVideo: true, HasAudio: true},
			},
			wantItag: 2,
		},
		{
			name: "no muxed rendition",
			renditions: []provider.Rendition{
				{Itag: 137, Quality: "1080p", HasVideo: true},
				{Itag: 140, HasAudio: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BestMuxed(tt.renditions)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BestMuxed() expected error, got itag %d", got.Itag)
				}
				return
			}
			if err != nil {
				t.Fatalf("BestMuxed() unexpected error: %v", err)
			}
			if got.Itag != tt.wantItag {
				t.Errorf("BestMuxed() itag = %d, want %d", got.Itag, tt.wantItag)
			}
		})
	}
}

func TestBestAudio(t *testing.T) {
	renditions := []provider.Rendition{
		{Itag: 18, Quality: "360p", HasVideo: true, HasAudio: true},
		{Itag: 139, Bitrate: 48000, HasAudio: true},
		{Itag: 140, Bitrate: 128000, HasAudio: true},
	}

	got, err := BestAudio(renditions)
	if err != nil {
		t.Fatalf("BestAudio() unexpected error: %v", err)
	}
	if got.Itag != 140 {
		t.Errorf("BestAudio() itag = %d, want 140", got.Itag)
	}

	if _, err := BestAudio(nil); err == nil {
		t.Error("BestAudio() on empty list expected error")
	}
}

func TestQualityRank(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"360p", 360},
		{"1080p60", 1080},
		{"720p", 720},
		{"", 0},
		{"hd", 0},
	}

	for _, tt := range tests {
		if got := qualityRank(tt.label); got != tt.want {
			t.Errorf("qualityRank(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}
