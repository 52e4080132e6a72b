package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

const (
	contextSeparator = "\n\n---\n\n"
	ellipsis         = "…"
)

// ContextOptions bounds the assembled context block.
type ContextOptions struct {
	MaxEntryChars   int
	MaxTotalChars   int
	NoContextMarker string
}

// ContextAssembler renders retrieved candidates into the grounding context
// handed to the generator.
type ContextAssembler struct {
	opts ContextOptions
}

// NewContextAssembler creates a new context assembler.
func NewContextAssembler(opts ContextOptions) *ContextAssembler {
	if opts.MaxEntryChars <= 0 {
		opts.MaxEntryChars = 800
	}
	if opts.MaxTotalChars < opts.MaxEntryChars {
		opts.MaxTotalChars = opts.MaxEntryChars
	}
	if opts.NoContextMarker == "" {
		opts.NoContextMarker = "No relevant knowledge base entries were found."
	}
	return &ContextAssembler{opts: opts}
}

// Assemble renders candidates in rank order and returns the block together
// with the candidates it contains. Each entry is capped at MaxEntryChars and
// the whole block at MaxTotalChars; entries that would not fit are dropped
// rather than cut. Zero candidates yields the no-context marker.
func (a *ContextAssembler) Assemble(candidates []domain.RetrievedCandidate) (string, []domain.RetrievedCandidate) {
	if len(candidates) == 0 {
		return a.opts.NoContextMarker, nil
	}

	var b strings.Builder
	used := 0
	for i, c := range candidates {
		block := truncateRunes(fmt.Sprintf("[%d] Q: %s\nA: %s", i+1, c.Entry.Question, c.Entry.Answer), a.opts.MaxEntryChars)

		cost := utf8.RuneCountInString(block)
		if i > 0 {
			cost += utf8.RuneCountInString(contextSeparator)
		}
		if used+cost > a.opts.MaxTotalChars {
			if i == 0 {
				// the first entry always goes in, cut to the budget
				b.WriteString(truncateRunes(block, a.opts.MaxTotalChars))
				return b.String(), candidates[:1]
			}
			return b.String(), candidates[:i]
		}

		if i > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(block)
		used += cost
	}
	return b.String(), candidates
}

// truncateRunes cuts s to at most max runes, marking the cut with an ellipsis.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + ellipsis
}
