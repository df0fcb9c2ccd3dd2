package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Prices outside this range are treated as parse noise rather than real
// product prices.
const (
	minPrice = 1.0
	maxPrice = 9999.0
)

var priceRe = regexp.MustCompile(`(?:^|[^\d])(\d{1,4})(?:[.,](\d{1,2}))?(?:[^\d,.]|$)`)

// ParsePrice extracts a numeric price from scraped text. It accepts the
// formats seen in the wild: "13,99", "169,-", "€13.99", "169 euro",
// "1.299,99". It returns false when no price in the accepted range can
// be found.
func ParsePrice(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	s = strings.NewReplacer("€", "", "euro", "", "eur", "", " ", " ").Replace(s)
	s = strings.TrimSpace(s)

	// "169,-" and "169.-" mean whole euros.
	s = strings.TrimSuffix(s, ",-")
	s = strings.TrimSuffix(s, ".-")

	// "1.299,99" uses a dot as thousands separator.
	if strings.Contains(s, ".") && strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}

	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	whole, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	price := whole
	if m[2] != "" {
		frac, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		if len(m[2]) == 1 {
			frac *= 10
		}
		price += frac / 100
	}

	if price < minPrice || price > maxPrice {
		return 0, false
	}
	return price, true
}
