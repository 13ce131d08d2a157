// Package classifier matches message text against the solved heuristic and
// against the stored auto-response and automod rules.
package classifier

import (
	"errors"
	"fmt"
	"regexp"

	"coolbot/models"
)

// ErrInvalidPattern is returned for a rule whose regex does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

var (
	positive = regexp.MustCompile(`(?i)(^solved$|solved\b|^ty$|\sty|thank|work|fixed|thx|tysm|appreciate|resolved|success|cheers|issue resolved|thank you|helped|problem solved|finally|woohoo)`)
	negative = regexp.MustCompile(`(?i)(doesn'?t|isn'?t|not?|but|before|won't|still|yet|having trouble|still having issues|no|never|wrong|nope|not quite|not really|unfortunately|regrettably|sadly)`)
)

// SuggestsSolved reports whether text reads like the author's problem is
// fixed. Any negative phrase wins over a positive one.
func SuggestsSolved(text string) bool {
	if text == "" {
		return false
	}
	if negative.MatchString(text) {
		return false
	}
	return positive.MatchString(text)
}

// Compile compiles a rule pattern for case-insensitive search. The returned
// error wraps ErrInvalidPattern and carries the compiler's message.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// Match returns the first rule, in the given order, whose pattern occurs
// anywhere in text. Rules that do not compile never match.
func Match(rules []models.Rule, text string) (models.Rule, bool) {
	for _, r := range rules {
		re, err := Compile(r.Regex)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return r, true
		}
	}
	return models.Rule{}, false
}
