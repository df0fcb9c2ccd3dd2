// Package parser turns fetched HTML pages into item snapshots. It
// handles both single product pages and collection (wishlist) pages
// that link out to many products.
package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/AbdullahP/pokealert/internal/metrics"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Parser extracts item data from product and collection pages.
type Parser struct {
	logger  *slog.Logger
	nowFunc func() time.Time
}

// ParserOption configures the Parser.
type ParserOption func(*Parser)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = l
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) ParserOption {
	return func(p *Parser) {
		p.nowFunc = f
	}
}

// New creates a Parser.
func New(opts ...ParserOption) *Parser {
	p := &Parser{
		logger:  slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseItem extracts a snapshot from a single product page. The pageURL
// is the URL the body was fetched from; it anchors relative links and
// derives the item ID.
func (p *Parser) ParseItem(body []byte, pageURL string) (*domain.ItemSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		metrics.ParseErrorsTotal.Inc()
		return nil, fmt.Errorf("parsing product page HTML: %w", err)
	}

	canonical, err := CanonicalURL(pageURL, "")
	if err != nil {
		metrics.ParseErrorsTotal.Inc()
		return nil, fmt.Errorf("canonicalizing page URL: %w", err)
	}

	title := p.extractTitle(doc)
	if title == "" {
		metrics.ParseErrorsTotal.Inc()
		return nil, fmt.Errorf("no title found on page %s", canonical)
	}

	rawPrice := extractRawPrice(doc)
	price, _ := ParsePrice(rawPrice)

	status, detail := ClassifyStock(stockText(doc))

	snap := &domain.ItemSnapshot{
		ItemID:       ItemID(canonical),
		Title:        title,
		Price:        price,
		RawPrice:     rawPrice,
		ImageURL:     extractImage(doc),
		URL:          canonical,
		PurchaseURL:  canonical,
		Status:       status,
		StockDetail:  detail,
		Site:         siteOf(canonical),
		DeliveryInfo: extractDelivery(doc),
		Marketplace:  isMarketplace(doc),
		CheckedAt:    p.nowFunc(),
	}

	metrics.ItemsParsedTotal.Inc()
	p.logger.Debug("parsed item",
		"item_id", snap.ItemID,
		"title", snap.Title,
		"price", snap.Price,
		"status", snap.Status,
	)
	return snap, nil
}

// ExtractProductLinks pulls product page links out of a collection page,
// deduplicated by canonical URL with the first occurrence's order kept.
func (p *Parser) ExtractProductLinks(body []byte, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		metrics.ParseErrorsTotal.Inc()
		return nil, fmt.Errorf("parsing collection page HTML: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "/p/") {
			return
		}
		canonical, err := CanonicalURL(href, baseURL)
		if err != nil {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		links = append(links, canonical)
	})

	p.logger.Debug("extracted product links", "url", baseURL, "count", len(links))
	return links, nil
}

// CanonicalURL resolves rawURL against base (when relative) and strips
// the query string, fragment, and trailing slash so URL variants of the
// same product collapse to one key.
func CanonicalURL(rawURL, base string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() {
		if base == "" {
			return "", fmt.Errorf("relative URL %q without base", rawURL)
		}
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parsing base URL %q: %w", base, err)
		}
		u = b.ResolveReference(u)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

// ItemID derives a stable item identifier from a canonical product URL.
// Product URLs carry a numeric ID as their last path segment; when none
// exists the whole canonical URL serves as the ID.
func ItemID(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return canonicalURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if isDigits(segments[i]) {
			return segments[i]
		}
	}
	return canonicalURL
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func siteOf(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func (p *Parser) extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find(`h1 span[data-test="title"]`).First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func extractRawPrice(doc *goquery.Document) string {
	// Promo price blocks render euros and cents in separate nodes.
	promo := doc.Find(`span[data-test="price"]`).First()
	if promo.Length() > 0 {
		euros := strings.TrimSpace(promo.Contents().Not("sup").Text())
		cents := strings.TrimSpace(promo.Find(`sup[data-test="price-fraction"]`).Text())
		if euros != "" {
			if cents != "" {
				return euros + "," + cents
			}
			return euros
		}
	}
	if t := strings.TrimSpace(doc.Find("span.promo-price").First().Text()); t != "" {
		return strings.Join(strings.Fields(t), ",")
	}
	if t, ok := doc.Find(`meta[property="og:price:amount"]`).Attr("content"); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func extractImage(doc *goquery.Document) string {
	if src, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		return strings.TrimSpace(src)
	}
	if src, ok := doc.Find(`img[data-test="product-image"]`).First().Attr("src"); ok {
		return strings.TrimSpace(src)
	}
	return ""
}

func extractDelivery(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find(`div[data-test="delivery-highlight"]`).First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find(`span[data-test="delivery-promise"]`).First().Text())
}

func isMarketplace(doc *goquery.Document) bool {
	seller := strings.ToLower(doc.Find(`div[data-test="seller-name"]`).First().Text())
	return seller != "" && !strings.Contains(seller, "bol")
}

// stockText gathers the page regions that carry availability wording.
func stockText(doc *goquery.Document) string {
	var parts []string
	doc.Find(`div[data-test="buy-block"], div[data-test="availability"], div.buy-block`).
		Each(func(_ int, sel *goquery.Selection) {
			parts = append(parts, sel.Text())
		})
	if len(parts) == 0 {
		// Fall back to the whole page when no buy block is present.
		parts = append(parts, doc.Text())
	}
	return strings.Join(parts, " ")
}
