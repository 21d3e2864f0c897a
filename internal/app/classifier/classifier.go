// Package classifier decides whether free text is a question aimed at the assistant.
//
// It is a cheap lexical gate, not language understanding: the remote agent is a
// metered resource and a live room should not get an answer to every utterance.
package classifier

import (
	"strings"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// starters are matched against the start of the normalized text.
var starters = []string{
	"what",
	"how",
	"why",
	"when",
	"where",
	"who",
	"can you",
	"could you",
	"would you",
	"explain",
	"tell me",
	"describe",
}

type Classifier struct {
	callSigns []string
}

// New builds a classifier; callSigns are the assistant's name and any
// other phrases that address it directly. Matching is case-insensitive.
func New(callSigns ...string) *Classifier {
	c := &Classifier{}
	for _, s := range callSigns {
		s = normalize(s)
		if s != "" {
			c.callSigns = append(c.callSigns, s)
		}
	}
	return c
}

// Classify reports whether text should be answered.
func (c *Classifier) Classify(text string) bool {
	return c.Kind(text) != domain.KindNotAQuestion
}

// Kind returns the tri-state classification. Addressing the assistant by
// name wins over the plain question signals.
func (c *Classifier) Kind(text string) domain.Classification {
	t := normalize(text)
	if t == "" {
		return domain.KindNotAQuestion
	}

	for _, s := range c.callSigns {
		if strings.Contains(t, s) {
			return domain.KindAddressed
		}
	}

	if strings.Contains(t, "?") {
		return domain.KindQuestion
	}
	for _, s := range starters {
		if strings.HasPrefix(t, s) {
			return domain.KindQuestion
		}
	}

	return domain.KindNotAQuestion
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
