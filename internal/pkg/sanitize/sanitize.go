// Package sanitize strips markup from user supplied free text before it is
// stored or rendered in vendor emails and dashboards.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML, unescapes entities the policy introduced, trims surrounding whitespace and caps the result at
// max runes. A max of zero disables the cap.
func Text(s string, max int) string {
	out := strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
	if max > 0 && utf8.RuneCountInString(out) > max {
		r := []rune(out)
		out = strings.TrimSpace(string(r[:max]))
	}
	return out
}

// Email lower-cases and trims an address. Markup is removed as well since
// addresses are echoed into notification templates.
func Email(s string) string {
	return strings.ToLower(Text(s, 254))
}
