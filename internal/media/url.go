package media

import (
	"strings"
	"unicode/utf8"
)

// MaxURLLength is the longest URL (after trimming) accepted by Sanitize.
const MaxURLLength = 2000

// ValidatedURL wraps a caller supplied URL which has passed Sanitize. The zero
// value is not valid; use Sanitize to construct one.
type ValidatedURL struct {
	raw string
}

// Sanitize performs the (intentionally permissive) validation of a caller
// supplied URL. The value must be a string which, once surrounding whitespace
// is trimmed, is non-empty, begins with "http" and is no longer than
// MaxURLLength characters. Any deeper validation is left to yt-dlp.
func Sanitize(input any) (ValidatedURL, bool) {
	str, ok := input.(string)
	if !ok {
		return ValidatedURL{}, false
	}

	trimmed := strings.TrimSpace(str)
	if trimmed == "" || !strings.HasPrefix(trimmed, "http") || utf8.RuneCountInString(trimmed) > MaxURLLength {
		return ValidatedURL{}, false
	}

	return ValidatedURL{raw: trimmed}, true
}

func (url ValidatedURL) String() string { return url.raw }

// IsZero reports whether this URL was constructed without Sanitize.
func (url ValidatedURL) IsZero() bool { return url.raw == "" }
