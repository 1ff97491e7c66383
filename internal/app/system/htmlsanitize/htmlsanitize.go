// Package htmlsanitize strips unsafe HTML from user-supplied rich text
// (bios, topic and meeting descriptions, feedback comments). Stored
// content is sanitized on write so every read path gets clean markup.
package htmlsanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	policy *bluemonday.Policy
)

func getPolicy() *bluemonday.Policy {
	once.Do(func() {
		p := bluemonday.UGCPolicy()

		// UGC allows tables but not their layout attributes.
		p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")

		policy = p
	})
	return policy
}

// Sanitize returns s with scripts, event handlers, and javascript: URLs
// removed. Safe formatting tags, links, and tables pass through.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return getPolicy().Sanitize(s)
}
