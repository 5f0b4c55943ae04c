package content

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"kruzhok/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

const maxMessageLength = 4096

var (
	policy        = bluemonday.StrictPolicy()
	usernameRegex = regexp.MustCompile(`^[a-z0-9._-]+$`)
)

// Sanitize strips all HTML from the input string. Message content and
// profile fields are stored and relayed as plain text.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// NormalizeMessage trims and sanitizes message content. Empty content
// after trimming is a validation error.
func NormalizeMessage(input string) (string, error) {
	out := strings.TrimSpace(Sanitize(input))
	if out == "" {
		return "", fmt.Errorf("%w: message content is required", models.ErrValidation)
	}
	if len(out) > maxMessageLength {
		return "", fmt.Errorf("%w: message content exceeds %d bytes", models.ErrValidation, maxMessageLength)
	}
	return out, nil
}

// ValidateUsername checks if the username contains only allowed characters
// (lowercase alphanumeric, dot, dash, underscore) and is not empty.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username contains invalid characters (allowed: lowercase alphanumeric, dot, dash, underscore)")
	}
	return nil
}
