// Package idgen mints the short random IDs used for questions, anonymous
// identities and server instances.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	QuestionPrefix = "q-"
	IdentityPrefix = "u-"

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Length is the number of random characters after the prefix.
	Length = 12
)

// NewQuestionID returns a fresh question ID.
func NewQuestionID() (string, error) {
	return GenerateWithPrefix(QuestionPrefix)
}

// NewIdentityUID returns a fresh anonymous identity UID.
func NewIdentityUID() (string, error) {
	return GenerateWithPrefix(IdentityPrefix)
}

// GenerateWithPrefix returns prefix followed by Length random characters.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Instance tags one server process, e.g. "web-1-Xk3…". An empty host gives
// just the random part.
func Instance(host string) string {
	id, err := nanoid.Generate(alphabet, 6)
	if err != nil {
		return host
	}
	if host == "" {
		return id
	}
	return host + "-" + id
}

// IsQuestionID reports whether s has the shape of a generated question ID.
// Anything else cannot name a stored question.
func IsQuestionID(s string) bool {
	rest, ok := strings.CutPrefix(s, QuestionPrefix)
	if !ok || len(rest) != Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
