// Package shortcode generates random short codes and validates custom ones.
package shortcode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vadimbarashkov/link-shortener/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of characters random short codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	DefaultLength = 6
	MinLength     = 6
	MaxLength     = 8
)

var pattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// reserved holds codes shadowed by fixed top-level routes.
var reserved = map[string]struct{}{
	"metrics": {},
	"swagger": {},
}

// Generate returns a random code of the given length. Every character is
// drawn uniformly and independently from Alphabet.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("%s: length %d out of range [%d, %d]", op, length, MinLength, MaxLength)
	}

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// Validate checks a caller-supplied code.
func Validate(code string) error {
	const op = "shortcode.Validate"

	if !pattern.MatchString(code) {
		return fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
	}

	if _, ok := reserved[strings.ToLower(code)]; ok {
		return fmt.Errorf("%s: %q is reserved: %w", op, code, entity.ErrInvalidShortCode)
	}

	return nil
}
