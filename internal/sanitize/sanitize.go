// Package sanitize cleans user input and upstream HTML.
package sanitize

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/xiaot623/entertainbot/internal/apperr"
)

// MaxMessageLength is the longest user message accepted, in characters.
const MaxMessageLength = 2000

var (
	whitespace = regexp.MustCompile(`\s+`)
	sessionID  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	strict     = bluemonday.StrictPolicy()
)

// ErrEmptyMessage is returned for input that is blank after trimming.
var ErrEmptyMessage = errors.New("Message cannot be empty")

// StripHTML removes all markup, decodes entities and collapses whitespace.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	clean := html.UnescapeString(strict.Sanitize(s))
	clean = whitespace.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// Message validates a raw chat message and returns it cleaned. Messages
// longer than MaxMessageLength are rejected, not truncated. Failures are
// *apperr.InputValidationFailed.
func Message(s string) (string, error) {
	if utf8.RuneCountInString(s) > MaxMessageLength {
		return "", &apperr.InputValidationFailed{
			Message: fmt.Sprintf("Message must be at most %d characters", MaxMessageLength),
		}
	}
	out, err := UserInput(s)
	if err != nil {
		return "", &apperr.InputValidationFailed{Message: err.Error()}
	}
	return out, nil
}

// UserInput trims, HTML-escapes and truncates a chat message.
func UserInput(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyMessage
	}
	s = html.EscapeString(s)
	return Truncate(s, MaxMessageLength), nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ValidSessionID reports whether id is safe to use as a session key.
func ValidSessionID(id string) bool {
	return sessionID.MatchString(id)
}
