package extract

import (
	"strings"
	"unicode"
)

// RelevanceLabel grades how promising a contact email looks for
// sponsorship outreach.
type RelevanceLabel string

const (
	LabelRelevant         RelevanceLabel = "Relevant"
	LabelMostlyRelevant   RelevanceLabel = "Mostly Relevant"
	LabelUnclear          RelevanceLabel = "Unclear"
	LabelMostlyIrrelevant RelevanceLabel = "Mostly Irrelevant"
	LabelIrrelevant       RelevanceLabel = "Irrelevant"
)

// relevanceRank orders labels from most to least promising.
var relevanceRank = map[RelevanceLabel]int{
	LabelRelevant:         0,
	LabelMostlyRelevant:   1,
	LabelUnclear:          2,
	LabelMostlyIrrelevant: 3,
	LabelIrrelevant:       4,
}

// ClassifyEmail labels one address by counting distinct relevant and
// irrelevant keyword hits among its tokens: the local part split on
// non-alphanumerics plus the first label of the domain. A keyword hits
// when it appears inside any token, so "grants" and "investorinfo" count
// for "grant" and "investor".
func ClassifyEmail(email string, relevant, irrelevant []string) RelevanceLabel {
	tokens := emailTokens(email)

	relevantHits := countHits(tokens, relevant)
	irrelevantHits := countHits(tokens, irrelevant)

	switch {
	case relevantHits > 0 && irrelevantHits == 0:
		return LabelRelevant
	case irrelevantHits > 0 && relevantHits == 0:
		return LabelIrrelevant
	case relevantHits > irrelevantHits:
		return LabelMostlyRelevant
	case irrelevantHits > relevantHits:
		return LabelMostlyIrrelevant
	default:
		return LabelUnclear
	}
}

// ClassifyEmails labels a set of addresses; the most promising label wins.
// ok is false when no address could be tokenized.
func ClassifyEmails(emails []string, relevant, irrelevant []string) (RelevanceLabel, bool) {
	best := RelevanceLabel("")
	found := false
	for _, email := range emails {
		if !strings.Contains(email, "@") {
			continue
		}
		label := ClassifyEmail(email, relevant, irrelevant)
		if !found || relevanceRank[label] < relevanceRank[best] {
			best = label
			found = true
		}
	}
	return best, found
}

// emailTokens splits an address into comparable tokens. "vertex_grants@vrtx.com"
// yields {vertex, grants, vrtx}.
func emailTokens(email string) map[string]struct{} {
	email = strings.ToLower(email)

	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		local = email
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(local, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = struct{}{}
	}
	if domain != "" {
		if label, _, _ := strings.Cut(domain, "."); label != "" {
			tokens[label] = struct{}{}
		}
	}
	return tokens
}

// countHits counts distinct keywords appearing inside any token.
func countHits(tokens map[string]struct{}, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		for tok := range tokens {
			if strings.Contains(tok, kw) {
				hits++
				break
			}
		}
	}
	return hits
}
