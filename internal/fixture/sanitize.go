package fixture

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const maxSlugLen = 100

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeName derives a filesystem-safe name from an arbitrary id:
// non-alphanumeric runs collapse to a single "-", the result is
// trimmed and capped at 100 characters, and the first 8 hex characters
// of a SHA-256 of the original id are appended. The hash suffix keeps
// ids that collide after lossy slugging (e.g. "2+2" vs "2-2") mapped
// to distinct files.
func SanitizeName(id string) string {
	slug := nonAlnum.ReplaceAllString(id, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}

	sum := sha256.Sum256([]byte(id))
	suffix := hex.EncodeToString(sum[:])[:8]

	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
