// Package classifier maps free-text message content to a category via
// ordered whole-word pattern matching.
package classifier

import (
	"regexp"

	"github.com/coldreach/autoreply/pkg/types"
)

// Rules are evaluated in order; first match wins. "Not Interested" is
// checked first so content matching multiple categories' keywords (e.g.
// "not interested" also containing "info") resolves to it.
var rules = []struct {
	category types.Category
	pattern  *regexp.Regexp
}{
	{types.CategoryNotInterested, regexp.MustCompile(`(?i)\b(not interested|no thanks|unsubscribe|do not want|stop|not for me)\b`)},
	{types.CategoryInterested, regexp.MustCompile(`(?i)\b(interested|want to buy|buy now|yes|definitely|count me in|sign me up)\b`)},
	{types.CategoryMoreInfo, regexp.MustCompile(`(?i)\b(more information|tell me more|details|info|i need more|can you elaborate)\b`)},
}

// Classify assigns exactly one category to the given content
func Classify(content string) types.Category {
	for _, rule := range rules {
		if rule.pattern.MatchString(content) {
			return rule.category
		}
	}
	return types.CategoryUncategorized
}
