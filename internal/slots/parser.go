// Package slots parses appointment accordion headers into typed records and
// narrows them to the ones worth an alert.
package slots

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultHeaderSelector matches the accordion section headers of the
// location list.
const DefaultHeaderSelector = "h3.ui-accordion-header"

// "Zulassungsstelle Ober-Ramstadt, Termine ab 05.01.2026, 13:15 Uhr"
var headerPattern = regexp.MustCompile(
	`(?i)^(?P<loc>[^,]+?),\s*Termine\s+ab\s+(?P<date>\d{2}\.\d{2}\.\d{4}),\s*(?P<hour>[01]\d|2[0-3]):(?P<min>[0-5]\d)\s*Uhr`,
)

// ParseHeader extracts a record from one header text. ok is false when the
// text does not follow the header pattern or carries an impossible date.
func ParseHeader(text string) (Record, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Record{}, false
	}

	m := headerPattern.FindStringSubmatch(text)
	if m == nil {
		return Record{}, false
	}

	loc := strings.TrimSpace(m[headerPattern.SubexpIndex("loc")])
	date, err := ParseDate(m[headerPattern.SubexpIndex("date")])
	if err != nil {
		return Record{}, false
	}
	clock, err := ParseClock(m[headerPattern.SubexpIndex("hour")] + ":" + m[headerPattern.SubexpIndex("min")])
	if err != nil {
		return Record{}, false
	}

	return Record{Location: loc, Date: date, Time: clock}, true
}

// ParseDocument runs ParseHeader over every element matching selector in
// saved page markup, preferring the title attribute over the text.
func ParseDocument(r io.Reader, selector string) ([]Record, error) {
	if selector == "" {
		selector = DefaultHeaderSelector
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var out []Record
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text, _ := s.Attr("title")
		if strings.TrimSpace(text) == "" {
			text = s.Text()
		}
		if rec, ok := ParseHeader(text); ok {
			out = append(out, rec)
		}
	})

	return out, nil
}
