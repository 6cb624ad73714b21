package moderation

import (
	"context"
	"log"
)

// Verdict is the outcome tier of a content review. The tiers are ordered:
// a higher score never produces a lower verdict.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictWarn          // delete + warning increment
	VerdictMute          // delete + 10 minute mute
)

// SevereOffset is added to the sender's sensitivity to form the mute
// threshold: score >= sensitivity+SevereOffset mutes, score >= sensitivity
// warns. The offset is global, not per-user.
const SevereOffset = 3

// Reasons recorded in the ledger for auto-mod interventions.
const (
	ReasonAuto       = "Auto moderation"
	ReasonAutoSevere = "Severe auto moderation"
)

// Decision is the result of reviewing one message.
type Decision struct {
	Verdict Verdict
	Score   int
	Reason  string
	// Rules lists matched rule names for log detail; empty for external
	// flags.
	Rules []string
}

// Engine scores message text against the rule table and, when configured,
// consults the external moderation service first.
type Engine struct {
	rules    []Rule
	external *ExternalClient
}

// NewEngine builds an Engine. external may be nil.
func NewEngine(rules []Rule, external *ExternalClient) *Engine {
	return &Engine{rules: rules, external: external}
}

// Score computes the local rule score for text.
func (e *Engine) Score(text string) int {
	return Score(e.rules, text)
}

// Review decides what to do with text given the sender's sensitivity
// (lower = stricter). An external flag short-circuits local scoring into a
// mute verdict; an external failure is logged and ignored.
func (e *Engine) Review(ctx context.Context, text string, sensitivity int) Decision {
	if e.external != nil {
		flagged, reason, err := e.external.Check(ctx, text)
		if err != nil {
			log.Printf("moderation: external check failed, falling back to local rules: %v", err)
		} else if flagged {
			return Decision{Verdict: VerdictMute, Reason: reason}
		}
	}

	score := Score(e.rules, text)
	switch {
	case score >= sensitivity+SevereOffset:
		return Decision{Verdict: VerdictMute, Score: score, Reason: ReasonAutoSevere, Rules: MatchedRules(e.rules, text)}
	case score >= sensitivity:
		return Decision{Verdict: VerdictWarn, Score: score, Reason: ReasonAuto, Rules: MatchedRules(e.rules, text)}
	default:
		return Decision{Verdict: VerdictAllow, Score: score}
	}
}
