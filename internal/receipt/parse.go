// Package receipt turns recognized receipt text into editable draft
// transactions and drives the scan, edit and commit flow of an import.
package receipt

import (
	"regexp"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Receipt is the structured result of parsing recognized lines.
type Receipt struct {
	StoreName string
	Date      time.Time // zero when no date was found
	Items     []LineItem
}

type LineItem struct {
	Name  string
	Price core.Money
}

var (
	// A price is the last token of the line, optionally wrapped in a currency mark.
	priceRe = regexp.MustCompile(`(?:^|\s)(?:[€$£]\s?)?(\d{1,7}[.,]\d{2})\s?(?:€|EUR)?\s*$`)

	datePatterns = []struct {
		re      *regexp.Regexp
		layouts []string
	}{
		{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), []string{"2006-01-02"}},
		{regexp.MustCompile(`\b\d{4}/\d{2}/\d{2}\b`), []string{"2006/01/02"}},
		{regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`), []string{"02/01/2006", "01/02/2006"}},
		{regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`), []string{"02.01.2006"}},
		{regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`), []string{"02-01-2006"}},
	}

	summaryWords = map[string]bool{
		"TOTAL":    true,
		"SUBTOTAL": true,
		"TAX":      true,
		"VAT":      true,
		"CHANGE":   true,
		"CASH":     true,
		"CARD":     true,
		"BALANCE":  true,
	}
)

// ParseLines extracts the store name, the purchase date and the priced items.
func ParseLines(lines []string) Receipt {
	var r Receipt
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		d, dated := parseDate(line)
		if dated && r.Date.IsZero() {
			r.Date = d
		}

		name, price, priced := splitPrice(line)
		if dated {
			if !priced {
				continue
			}
			name = strings.TrimSpace(stripDates(name))
		}
		if !priced {
			if r.StoreName == "" && hasLetter(line) && !isSummary(line) {
				r.StoreName = line
			}
			continue
		}
		if isSummary(line) || name == "" {
			continue
		}
		r.Items = append(r.Items, LineItem{Name: name, Price: price})
	}
	return r
}

// splitPrice separates a trailing price token from the item name.
func splitPrice(line string) (string, core.Money, bool) {
	loc := priceRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return "", core.Money{}, false
	}
	price, err := core.ParseMoney(line[loc[2]:loc[3]])
	if err != nil {
		return "", core.Money{}, false
	}
	name := strings.TrimRight(strings.TrimSpace(line[:loc[0]]), " .:-*")
	return name, price, true
}

func parseDate(line string) (time.Time, bool) {
	for _, p := range datePatterns {
		m := p.re.FindString(line)
		if m == "" {
			continue
		}
		for _, layout := range p.layouts {
			if d, err := time.Parse(layout, m); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// stripDates removes date tokens, so "15/01/2025 Milk" names the item "Milk".
func stripDates(s string) string {
	for _, p := range datePatterns {
		s = p.re.ReplaceAllString(s, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

func isSummary(line string) bool {
	for _, f := range strings.FieldsFunc(strings.ToUpper(line), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z')
	}) {
		if summaryWords[f] {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
