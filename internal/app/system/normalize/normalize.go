// Package normalize trims and canonicalizes user-supplied strings before
// they reach the stores.
package normalize

import "strings"

// Email trims whitespace and lowercases.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// OptionalName applies Name to an optional value; blank becomes nil.
func OptionalName(s *string) *string {
	if s == nil {
		return nil
	}
	n := Name(*s)
	if n == "" {
		return nil
	}
	return &n
}

// RORID reduces a registry id given as a full URL
// ("https://ror.org/05gzmn429") to its bare form ("05gzmn429").
func RORID(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://ror.org/", "http://ror.org/", "ror.org/"} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			return s[len(prefix):]
		}
	}
	return s
}
