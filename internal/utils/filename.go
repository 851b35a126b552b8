package utils

import "regexp"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeFilename reduces a video title to a header and filesystem
// safe attachment name: everything outside the alphanumeric range
// becomes an underscore and the result is capped at max bytes.
func SanitizeFilename(title string, max int) string {
	name := unsafeChars.ReplaceAllString(title, "_")
	if max > 0 && len(name) > max {
		name = name[:max]
	}

	return name
}
