package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// slugExistsFunc reports whether a slug is already taken.
type slugExistsFunc func(ctx context.Context, slug string) (bool, error)

// slugify converts a title into a URL slug: lowercase, alphanumerics kept,
// everything else collapsed into single hyphens.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// uniqueSlug slugifies the title and appends -2, -3, ... until the slug is
// free. Gives up after a bounded number of probes rather than looping forever
// on a pathological dataset.
func uniqueSlug(ctx context.Context, title string, exists slugExistsFunc) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "untitled"
	}

	slug := base
	for i := 2; ; i++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		if i > 100 {
			return "", fmt.Errorf("could not find a free slug for %q", base)
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
