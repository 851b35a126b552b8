package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestValidateURL(t *testing.T) {
	y := NewYouTube(0)

	tests := []struct {
		raw  string
		want bool
	}{
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"not-a-url", false},
		{"", false},
		{"https://example.com/watch?v=dQw4w9WgXcQ", false},
	}

	for _, tt := range tests {
		if got := y.ValidateURL(tt.raw); got != tt.want {
			t.Errorf("ValidateURL(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"login required", youtube.ErrLoginRequired, KindDenied},
		{"private video", youtube.ErrVideoPrivate, KindDenied},
		{"wrapped private video", fmt.Errorf("get video: %w", youtube.ErrVideoPrivate), KindDenied},
		{"invalid id characters", youtube.ErrInvalidCharactersInVideoID, KindInvalidInput},
		{"id too short", youtube.ErrVideoIDMinLength, KindInvalidInput},
		{"playability unavailable", &youtube.ErrPlayabiltyStatus{Status: "ERROR", Reason: "Video unavailable"}, KindNotFound},
		{"playability age gate", &youtube.ErrPlayabiltyStatus{Status: "LOGIN_REQUIRED", Reason: "Sign in to confirm your age"}, KindDenied},
		{"status 403", youtube.ErrUnexpectedStatusCode(403), KindDenied},
		{"status 404", youtube.ErrUnexpectedStatusCode(404), KindNotFound},
		{"status 500", youtube.ErrUnexpectedStatusCode(500), KindTransient},
		// untyped errors fall back to message classification
		{"message private", errors.New("this video is private"), KindDenied},
		{"message login required", errors.New("Login required to view this video"), KindDenied},
		{"message consent", errors.New("consent page returned"), KindDenied},
		{"message unavailable", errors.New("video unavailable in your country"), KindNotFound},
		{"message unknown", errors.New("connection reset by peer"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)

			if kind := KindOf(got); kind != tt.want {
				t.Errorf("mapError() kind = %v, want %v", kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("mapError() lost the upstream cause")
			}
		})
	}
}

func TestSplitMime(t *testing.T) {
	tests := []struct {
		mimeType      string
		wantContainer string
		wantCodecs    string
	}{
		{`video/mp4; codecs="avc1.42001E, mp4a.40.2"`, "mp4", "avc1.42001E, mp4a.40.2"},
		{`audio/webm; codecs="opus"`, "webm", "opus"},
		{`video/webm`, "webm", ""},
		{``, "", ""},
	}

	for _, tt := range tests {
		container, codecs := splitMime(tt.mimeType)
		if container != tt.wantContainer || codecs != tt.wantCodecs {
			t.Errorf("splitMime(%q) = (%q, %q), want (%q, %q)",
				tt.mimeType, container, codecs, tt.wantContainer, tt.wantCodecs)
		}
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindTransient {
		t.Errorf("KindOf(plain error) = %v, want %v", got, KindTransient)
	}
	if got := KindOf(Errorf(KindNotFound, "missing")); got != KindNotFound {
		t.Errorf("KindOf(provider error) = %v, want %v", got, KindNotFound)
	}
}
