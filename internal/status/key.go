package status

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DeriveKey produces the stable snake_case identifier for a display name:
// lower-cased, surrounding whitespace dropped, internal whitespace collapsed
// to single underscores.
func DeriveKey(displayName string) string {
	return strings.Join(strings.Fields(strings.ToLower(displayName)), "_")
}

// DeriveDisplayName produces a default human label from a status key, e.g.
// "in_progress" becomes "In Progress".
func DeriveDisplayName(key string) string {
	return titleCaser.String(strings.Join(strings.Split(key, "_"), " "))
}
