package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/tgr-cmp/ytrelay/internal/creds"
	"github.com/tgr-cmp/ytrelay/internal/metrics"
	"github.com/tgr-cmp/ytrelay/internal/provider"
	"github.com/tgr-cmp/ytrelay/internal/selector"
)

type fakeProvider struct {
	meta     *provider.Metadata
	fetchErr error
	openErr  error
	payload  []byte

	fetchCalls int
	openCalls  int
}

func (f *fakeProvider) ValidateURL(raw string) bool {
	return strings.HasPrefix(raw, "https://youtu.be/") ||
		strings.HasPrefix(raw, "https://www.youtube.com/watch")
}

func (f *fakeProvider) Fetch(ctx context.Context, rawURL string, bundle *creds.Bundle) (*provider.Metadata, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.meta, nil
}

func (f *fakeProvider) Open(ctx context.Context, meta *provider.Metadata, rendition provider.Rendition, bundle *creds.Bundle) (io.ReadCloser, int64, error) {
	f.openCalls++
	if f.openErr != nil {
		return nil, 0, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.payload)), int64(len(f.payload)), nil
}

func newTestPipeline(prov provider.Provider) *PipelineCtx {
	return New(prov, creds.NewStore("", "", nil), metrics.New())
}

var testPolicy = selector.Policy{
	Quality:                "360p",
	Container:              "mp4",
	RequireVideo:           true,
	RequireAudio:           true,
	AllowContainerFallback: true,
}

func TestRunDelivered(t *testing.T) {
	payload := bytes.Repeat([]byte("stream"), 10000)
	fake := &fakeProvider{
		meta: &provider.Metadata{
			ID:    "dQw4w9WgXcQ",
			Title: "Test Video",
			Renditions: []provider.Rendition{
				{Itag: 18, Quality: "360p", Container: "mp4", HasVideo: true, HasAudio: true},
			},
		},
		payload: payload,
	}

	var sink bytes.Buffer
	result := newTestPipeline(fake).Run(context.Background(), Request{
		ID:        "test-1",
		URL:       "https://youtu.be/dQw4w9WgXcQ",
		Selection: SelectPolicy,
		Policy:    testPolicy,
	}, func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error) {
		if meta.Title != "Test Video" {
			t.Errorf("open sink title = %q, want %q", meta.Title, "Test Video")
		}
		if size != int64(len(payload)) {
			t.Errorf("open sink size = %d, want %d", size, len(payload))
		}
		return &sink, nil
	})

	if result.Outcome != OutcomeDelivered {
		t.Fatalf("Run() outcome = %v, want delivered (err: %v)", result.Outcome, result.Err)
	}
	if result.Rendition.Quality != "360p" {
		t.Errorf("Run() rendition quality = %q, want 360p", result.Rendition.Quality)
	}
	if result.Tier != selector.TierExact {
		t.Errorf("Run() tier = %v, want exact", result.Tier)
	}
	if !bytes.Equal(sink.Bytes(), payload) {
		t.Errorf("Run() sink received %d bytes, want full %d byte stream", sink.Len(), len(payload))
	}
}

func TestRunUpstreamDenied(t *testing.T) {
	fake := &fakeProvider{
		fetchErr: provider.Errorf(provider.KindDenied, "login required to view this video"),
	}

	result := newTestPipeline(fake).Run(context.Background(), Request{
		ID:        "test-2",
		URL:       "https://youtu.be/dQw4w9WgXcQ",
		Selection: SelectPolicy,
		Policy:    testPolicy,
	}, func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error) {
		t.Fatal("sink must not be opened when metadata fetch fails")
		return nil, nil
	})

	if result.Outcome != OutcomeDenied {
		t.Errorf("Run() outcome = %v, want denied", result.Outcome)
	}
	if result.Err == nil || !strings.Contains(result.Err.Error(), "login required") {
		t.Errorf("Run() err = %v, want the upstream reason preserved", result.Err)
	}
}

func TestRunInvalidInputMakesNoNetworkCalls(t *testing.T) {
	fake := &fakeProvider{}

	result := newTestPipeline(fake).Run(context.Background(), Request{
		ID:        "test-3",
		URL:       "not-a-url",
		Selection: SelectPolicy,
		Policy:    testPolicy,
	}, func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error) {
		t.Fatal("sink must not be opened for invalid input")
		return nil, nil
	})

	if result.Outcome != OutcomeInvalidInput {
		t.Errorf("Run() outcome = %v, want invalid_input", result.Outcome)
	}
	if fake.fetchCalls != 0 || fake.openCalls != 0 {
		t.Errorf("Run() made %d fetch and %d open calls, want none", fake.fetchCalls, fake.openCalls)
	}
}

func TestRunRenditionNotFound(t *testing.T) {
	fake := &fakeProvider{
		meta: &provider.Metadata{
			ID:    "dQw4w9WgXcQ",
			Title: "No Small Formats",
			Renditions: []provider.Rendition{
				{Itag: 137, Quality: "1080p", Container: "mp4", HasVideo: true},
			},
		},
	}

	result := newTestPipeline(fake).Run(context.Background(), Request{
		ID:        "test-4",
		URL:       "https://youtu.be/dQw4w9WgXcQ",
		Selection: SelectPolicy,
		Policy:    testPolicy,
	}, func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error) {
		t.Fatal("sink must not be opened when selection fails")
		return nil, nil
	})

	if result.Outcome != OutcomeNotFound {
		t.Errorf("Run() outcome = %v, want not_found", result.Outcome)
	}
	if result.Metadata == nil {
		t.Error("Run() metadata missing, selection failures should keep it for diagnostics")
	}
	if fake.openCalls != 0 {
		t.Errorf("Run() made %d open calls, want none", fake.openCalls)
	}
}

func TestInfo(t *testing.T) {
	fake := &fakeProvider{
		meta: &provider.Metadata{
			ID:       "dQw4w9WgXcQ",
			Title:    "Test Video",
			Author:   "Test Author",
			Duration: 212,
		},
	}
	pipe := newTestPipeline(fake)

	meta, err := pipe.Info(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Info() unexpected error: %v", err)
	}
	if meta.Author != "Test Author" {
		t.Errorf("Info() author = %q, want %q", meta.Author, "Test Author")
	}

	if _, err := pipe.Info(context.Background(), "not-a-url"); provider.KindOf(err) != provider.KindInvalidInput {
		t.Errorf("Info() on invalid input kind = %v, want invalid input", provider.KindOf(err))
	}
	if fake.fetchCalls != 1 {
		t.Errorf("Info() fetch calls = %d, want 1", fake.fetchCalls)
	}
}
