// Package extract pulls contact identifiers out of page content. It is
// pure: same input, same output, no I/O.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Generous international-leaning phone pattern: optional country code,
	// two-to-five digit groups with space/dash/dot/parenthesis separators.
	// The digit-count gate below does the real filtering.
	phoneRe = regexp.MustCompile(`\(?\+?[0-9]{0,3}\)?[-.\s]?\(?[0-9]{2,5}\)?[-.\s]?[0-9]{2,5}[-.\s]?[0-9]{2,5}`)

	nonDigitRe = regexp.MustCompile(`\D`)
)

// Digit-count bounds for an accepted phone candidate.
const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// Contacts is the extraction result: sorted, deduplicated identifier sets.
type Contacts struct {
	Emails []string
	Phones []string
}

// HasAny reports whether at least one identifier was found.
func (c Contacts) HasAny() bool {
	return len(c.Emails) > 0 || len(c.Phones) > 0
}

// Contact extracts emails and phone numbers from an HTML page body.
// Matching runs over the visible text; script and style content is dropped.
// Emails are accepted on syntax alone. Phone candidates pass only if their
// digit count, after stripping separators, lands in [7, 15].
func Contact(htmlBody string) Contacts {
	text := visibleText(htmlBody)

	emails := make(map[string]struct{})
	for _, m := range emailRe.FindAllString(text, -1) {
		emails[m] = struct{}{}
	}

	phones := make(map[string]struct{})
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := nonDigitRe.ReplaceAllString(m, "")
		if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
			continue
		}
		phones[strings.TrimSpace(m)] = struct{}{}
	}

	return Contacts{
		Emails: sortedKeys(emails),
		Phones: sortedKeys(phones),
	}
}

// visibleText renders HTML to the text a visitor would see. Malformed
// markup falls back to matching against the raw input; a parse anomaly
// means "no data extracted", never an error.
func visibleText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return htmlBody
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
