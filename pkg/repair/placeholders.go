package repair

import "strings"

// Placeholders written by the bottle build toolchain. They are matched
// byte for byte.
const (
	PrefixPlaceholder = "@@HOMEBREW_PREFIX@@"
	CellarPlaceholder = "@@HOMEBREW_CELLAR@@"
)

// HasPlaceholder reports whether s names either placeholder
func HasPlaceholder(s string) bool {
	return strings.Contains(s, PrefixPlaceholder) || strings.Contains(s, CellarPlaceholder)
}

// Relocator substitutes placeholders with real roots
type Relocator struct {
	Prefix string
	Cellar string
}

// Relocate returns s with every placeholder replaced
func (r Relocator) Relocate(s string) string {
	s = strings.ReplaceAll(s, CellarPlaceholder, r.Cellar)
	return strings.ReplaceAll(s, PrefixPlaceholder, r.Prefix)
}

// Replacements maps every placeholder-bearing entry of lc to its
// relocated form
func (r Relocator) Replacements(lc *LoadCommands) map[string]string {
	out := make(map[string]string)
	for _, s := range lc.All() {
		if HasPlaceholder(s) {
			out[s] = r.Relocate(s)
		}
	}
	return out
}
