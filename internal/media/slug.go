package media

import (
	"strings"
	"unicode"
)

// maxSlugLength bounds derived slugs to keep paths and URLs manageable.
const maxSlugLength = 80

// Slugify derives a URL-safe slug from a title. Letters and digits are kept
// (lowercased), everything else collapses to single hyphens. An empty result
// falls back to "video".
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}

		if b.Len() >= maxSlugLength {
			break
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "video"
	}
	return slug
}
