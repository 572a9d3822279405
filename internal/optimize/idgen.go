package optimize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a free-text name to a URL-safe slug.
// Examples: "Office Depot" → "office-depot", "Café Nero" → "cafe-nero"
func Slugify(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	// Strip combining marks so accented characters slug cleanly
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, name)
	if err != nil {
		return "", fmt.Errorf("failed to normalize name %q: %w", name, err)
	}

	slug := strings.ToLower(normalized)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "", fmt.Errorf("name %q contains no alphanumeric characters", name)
	}

	return slug, nil
}

// RecommendationID builds a deterministic recommendation ID from a rule
// kind and its subject. Format: "rec-{kind}-{subjectSlug}". Subjects that
// cannot be slugged fall back to "unknown" so the ID stays stable and
// non-empty.
func RecommendationID(kind, subject string) string {
	slug, err := Slugify(subject)
	if err != nil {
		slug = "unknown"
	}
	return fmt.Sprintf("rec-%s-%s", kind, slug)
}
