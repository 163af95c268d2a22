package feed

import (
	"strings"

	"github.com/shorebird/feedgen/internal/policy"
	"github.com/shorebird/feedgen/internal/source"
)

// Classifier decides whether a post belongs in the feed. It is a pure
// function of the post and one policy snapshot: no state, no side effects.
type Classifier struct {
	// AcceptedLanguage rejects posts whose declared language list does
	// not include it. Empty disables the check.
	AcceptedLanguage string
	// MaxHashtags rejects posts carrying more hashtags than this.
	MaxHashtags int
}

// Decision is the outcome of classifying one post.
type Decision struct {
	Accepted bool
	// Keyword is the policy keyword that accepted the post.
	Keyword string
	// Boost is the boosted-keyword weight fixed at ingestion time.
	Boost float64
}

// Classify applies, in order: structural pre-filters, the negative-keyword
// veto, whole-word keyword matching, then partial matching. The boost is
// computed independently of which keyword accepted the post.
func (cl Classifier) Classify(ev source.Event, p *policy.Policy) Decision {
	if ev.IsReply {
		return Decision{}
	}
	if cl.AcceptedLanguage != "" && len(ev.Langs) > 0 && !containsString(ev.Langs, cl.AcceptedLanguage) {
		return Decision{}
	}
	if cl.MaxHashtags > 0 && strings.Count(ev.Text, "#") > cl.MaxHashtags {
		return Decision{}
	}

	lower := strings.ToLower(ev.Text)

	// Negative keywords veto unconditionally, before any positive match.
	for _, kw := range p.NegativeKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return Decision{}
		}
	}

	matched := ""
	padded := padNormalize(ev.Text)
	for _, kw := range p.Keywords {
		if kw != "" && strings.Contains(padded, " "+strings.ToLower(kw)+" ") {
			matched = kw
			break
		}
	}
	if matched == "" {
		for _, kw := range p.PartialKeywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				matched = kw
				break
			}
		}
	}
	if matched == "" {
		return Decision{}
	}

	return Decision{
		Accepted: true,
		Keyword:  matched,
		Boost:    boostFor(ev.Text, p.BoostedKeywords),
	}
}

// padNormalize lowercases the text and reduces token boundaries to single
// spaces: line breaks become spaces, then sentence punctuation followed by
// a space collapses into the space, then space runs collapse. The result
// is padded so every whole word is delimited by " w ". Padding happens
// before punctuation collapsing so trailing punctuation ("a k.") still
// ends a token.
func padNormalize(text string) string {
	s := " " + strings.ToLower(text) + " "
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s = strings.NewReplacer(", ", " ", ". ", " ", "! ", " ", "? ", " ").Replace(s)
	return " " + strings.Join(strings.Fields(s), " ") + " "
}

// boostFor scans boosted keywords against the original-case text. Boosts
// never stack: the maximum matching weight wins, zero if none match.
func boostFor(text string, boosted map[string]float64) float64 {
	best := 0.0
	found := false
	for kw, weight := range boosted {
		if kw == "" || !strings.Contains(text, kw) {
			continue
		}
		if !found || weight > best {
			best = weight
			found = true
		}
	}
	return best
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
