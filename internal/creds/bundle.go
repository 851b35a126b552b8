package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Entry is a single session token in the exported browser-cookie format.
type Entry struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
}

// Bundle is an immutable collection of session entries. It is replaced
// wholesale on refresh, never mutated.
type Bundle struct {
	entries []Entry
}

// ParseBundle decodes a JSON array of session entries. Any other JSON
// shape is rejected so that partial or malformed data is never used.
func ParseBundle(data []byte) (*Bundle, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("credential payload is not a JSON array of entries: %w", err)
	}
	// a JSON null decodes into a nil slice without error
	if entries == nil {
		return nil, errors.New("credential payload is not a JSON array of entries")
	}

	return &Bundle{entries: entries}, nil
}

func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}

	return len(b.entries)
}

// Client returns an http client whose cookie jar carries the bundle
// entries, so upstream requests appear as an authenticated session.
// A zero timeout leaves the client unbounded (stream downloads).
func (b *Bundle) Client(timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if b == nil || len(b.entries) == 0 {
		return client
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return client
	}

	perDomain := map[string][]*http.Cookie{}
	for _, entry := range b.entries {
		domain := strings.TrimPrefix(entry.Domain, ".")
		if domain == "" {
			domain = "youtube.com"
		}

		path := entry.Path
		if path == "" {
			path = "/"
		}

		perDomain[domain] = append(perDomain[domain], &http.Cookie{
			Name:     entry.Name,
			Value:    entry.Value,
			Domain:   domain,
			Path:     path,
			Secure:   entry.Secure,
			HttpOnly: entry.HTTPOnly,
		})
	}

	for domain, cookies := range perDomain {
		jar.SetCookies(&url.URL{Scheme: "https", Host: domain}, cookies)
	}

	client.Jar = jar
	return client
}
