package usecase

import (
	"strings"
	"unicode"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// IntentDetector matches user text against configured phrase lists.
// Matching ignores case and punctuation and only matches whole words.
type IntentDetector struct {
	handoff    []string
	resolution []string
}

func NewIntentDetector(handoffPhrases, resolutionPhrases []string) *IntentDetector {
	return &IntentDetector{
		handoff:    preparePhrases(handoffPhrases),
		resolution: preparePhrases(resolutionPhrases),
	}
}

func preparePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := normalizeText(p); n != "" {
			out = append(out, " "+n+" ")
		}
	}
	return out
}

// normalizeText lower-cases s, replaces punctuation with spaces and collapses
// whitespace. Apostrophes are dropped so "don't" matches "dont".
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func containsPhrase(text string, phrases []string) bool {
	if len(phrases) == 0 {
		return false
	}
	padded := " " + normalizeText(text) + " "
	for _, p := range phrases {
		if strings.Contains(padded, p) {
			return true
		}
	}
	return false
}

// IsExplicitRequest reports whether text asks for a human.
func (d *IntentDetector) IsExplicitRequest(text string) bool {
	return containsPhrase(text, d.handoff)
}

// IsResolution reports whether text confirms the problem is solved.
func (d *IntentDetector) IsResolution(text string) bool {
	return containsPhrase(text, d.resolution)
}

// Decision is the outcome of an escalation check.
type Decision struct {
	NeedsEscalation bool
	Reason          domain.EscalationReason
	Explicit        bool
	Resolved        bool
}

// EscalationPolicy decides whether a conversation should be handed to a human.
// It holds no state; the session is passed in.
type EscalationPolicy struct {
	threshold float64
	intent    *IntentDetector
}

func NewEscalationPolicy(threshold float64, intent *IntentDetector) *EscalationPolicy {
	return &EscalationPolicy{threshold: threshold, intent: intent}
}

// Decide escalates when confidence is below the threshold, when the user asks
// for a human, or when the session was escalated earlier and the user has not
// confirmed resolution. An explicit request takes precedence as the reason.
func (p *EscalationPolicy) Decide(confidence float64, query string, session domain.Session) Decision {
	d := Decision{
		Explicit: p.intent.IsExplicitRequest(query),
		Resolved: p.intent.IsResolution(query),
	}

	switch {
	case d.Explicit:
		d.Reason = domain.ReasonExplicitRequest
	case confidence < p.threshold:
		d.Reason = domain.ReasonLowConfidence
	case session.Escalated && !d.Resolved:
		d.Reason = domain.ReasonUnresolved
	default:
		return d
	}
	d.NeedsEscalation = true
	return d
}
