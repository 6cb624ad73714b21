// Package moderation provides content scoring and per-user moderation state.
// It screens chat messages against a fixed rule table, optionally consults an
// external moderation service, and enforces warnings, mutes, bans and
// shadow-bans before messages reach persistence or other users.
package moderation

import (
	"regexp"
	"strings"
)

// Rule is one content check. Rules are independent: a message can match
// several, and their severities sum into the final score.
type Rule struct {
	Name     string
	Severity int
	match    func(string) bool
}

func regexRule(name string, severity int, pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{Name: name, Severity: severity, match: re.MatchString}
}

// termListRule matches any of the given terms on word boundaries,
// case-insensitively. Returns a zero rule when the list is empty; Score
// skips rules with a nil matcher.
func termListRule(name string, severity int, terms []string) Rule {
	if len(terms) == 0 {
		return Rule{Name: name, Severity: severity}
	}
	escaped := make([]string, 0, len(terms))
	for _, term := range terms {
		escaped = append(escaped, regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(term))))
	}
	re := regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	return Rule{Name: name, Severity: severity, match: re.MatchString}
}

// charFloodThreshold is the number of consecutive identical characters that
// counts as flooding.
const charFloodThreshold = 8

// hasCharFlood returns true if text contains charFloodThreshold or more
// consecutive identical characters. RE2 has no backreferences, so this is a
// linear scan rather than a regex.
func hasCharFlood(text string) bool {
	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= charFloodThreshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

// NewRules builds the ordered rule table applied to every message. The
// severity-5 slur list is operator-supplied (config) so deployments can
// maintain it without a code change; the remaining rules are fixed.
// Severity tiers: 5 slurs, 4 self-harm, 3 profanity/spam, 2 links and
// flooding.
func NewRules(slurTerms []string) []Rule {
	return []Rule{
		termListRule("slur", 5, slurTerms),
		regexRule("self_harm", 4, `(?i)\b(kill\s+(?:yo)?urself|kys|go\s+die|end\s+your\s+life)\b`),
		regexRule("profanity", 3, `(?i)\b(fuck\w*|shit\w*|bitch\w*|asshole\w*|cunt\w*)\b`),
		regexRule("spam_phrase", 3, `(?i)\b(free\s+(?:v-?bucks|robux|coins|gems)|click\s+here|buy\s+now|limited\s+offer|dm\s+me\s+for)\b`),
		regexRule("url", 2, `(?i)(https?://\S+|www\.\S+)`),
		{Name: "char_flood", Severity: 2, match: hasCharFlood},
	}
}

// Score sums the severity of every rule matching text. Rules are
// independent, so scores are additive and uncapped.
func Score(rules []Rule, text string) int {
	total := 0
	for _, rule := range rules {
		if rule.match != nil && rule.match(text) {
			total += rule.Severity
		}
	}
	return total
}

// MatchedRules returns the names of every rule matching text, used for
// moderation log detail.
func MatchedRules(rules []Rule, text string) []string {
	var names []string
	for _, rule := range rules {
		if rule.match != nil && rule.match(text) {
			names = append(names, rule.Name)
		}
	}
	return names
}
