package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tgr-cmp/ytrelay/internal/creds"
)

// Metadata is a per-request snapshot of a remote video. It is discarded
// once the relay completes and never cached across requests.
type Metadata struct {
	ID        string
	Title     string
	Author    string
	Duration  int // seconds
	Views     int
	Thumbnail string

	Renditions []Rendition

	// provider-native handle, reused by Open to avoid a second
	// metadata roundtrip
	native any
}

// Rendition describes one encoded version of a video.
type Rendition struct {
	Itag      int
	Quality   string
	Container string
	Codecs    string
	Bitrate   int
	HasVideo  bool
	HasAudio  bool
}

// Provider is the capability boundary to the upstream video platform.
// Implementations only read; they are idempotent and side effect free.
type Provider interface {
	// ValidateURL is a pure syntactic check, it must not touch the
	// network.
	ValidateURL(raw string) bool

	Fetch(ctx context.Context, rawURL string, bundle *creds.Bundle) (*Metadata, error)

	// Open returns a readable byte stream for the chosen rendition
	// and its size when known (0 otherwise).
	Open(ctx context.Context, meta *Metadata, rendition Rendition, bundle *creds.Bundle) (io.ReadCloser, int64, error)
}

// Kind classifies provider failures for the orchestrator.
type Kind int

const (
	KindTransient Kind = iota
	KindInvalidInput
	KindNotFound
	KindDenied
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindDenied:
		return "denied"
	default:
		return "transient"
	}
}

// Error carries a failure kind alongside the upstream cause.
type Error struct {
	Kind  Kind
	cause error
}

func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	return e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the failure kind from an error chain. Errors with no
// kind attached are treated as transient.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	return KindTransient
}
