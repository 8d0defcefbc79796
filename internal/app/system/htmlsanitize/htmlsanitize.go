// Package htmlsanitize cleans the rich-text description fields (groups,
// roles) before they are stored. The frontend renders descriptions as
// HTML, so markup is allowed but anything executable is removed.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	policy *bluemonday.Policy
)

func ugc() *bluemonday.Policy {
	once.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark")
		p.AllowAttrs("class").OnElements("table", "tr", "td", "th")
		policy = p
	})
	return policy
}

// Sanitize returns s with unsafe markup removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc().Sanitize(s)
}

// SanitizePtr applies Sanitize to an optional value.
func SanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Sanitize(*s)
	return &out
}

// IsPlainText reports whether s contains no tags.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
