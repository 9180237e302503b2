package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/rbarroso/mlwatch/internal/types"
)

// Selector generations for the product detail page.
const (
	selDetailSellerBtn  = "button.ui-pdp-seller__link-trigger-button"
	selDetailSellerLink = "a.ui-pdp-media__action"
	selDetailSubtitle   = "span.ui-pdp-subtitle"
	selDetailRating     = "span.ui-review-summary__rating, .ui-pdp-review__rating__summary"
	selDetailReviewsTot = "span.ui-review-summary__average, .ui-review-capabilities__count"
)

// The seller node is the part of the detail page that shifts shape
// most often; when the CSS paths miss, an XPath pass over the same
// fragment gets a second chance at it.
const xpathSellerSpan = `//*[contains(@class,"ui-pdp-seller__link-trigger-button")]//span`

// Detail parses a product detail-page fragment into a DetailRecord.
// Every field is optional, so extraction never fails: a fragment that
// yields nothing produces an empty record.
func Detail(fragment string) types.DetailRecord {
	var rec types.DetailRecord

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return rec
	}

	rec.SellerName = sellerName(doc, fragment)

	if n, ok := Count(doc.Find(selDetailSubtitle).First().Text()); ok {
		rec.UnitsSold = &n
	}
	if v, ok := ratingValue(doc.Find(selDetailRating).First().Text()); ok {
		rec.Rating = &v
	}
	if n, ok := Count(doc.Find(selDetailReviewsTot).First().Text()); ok {
		rec.ReviewCount = &n
	}

	return rec
}

// sellerName resolves the seller through three markup generations: the
// seller-button span, the media-action link, then an XPath retry.
func sellerName(doc *goquery.Document, fragment string) string {
	spans := doc.Find(selDetailSellerBtn).First().Find("span")
	if spans.Length() > 1 {
		if name := strings.TrimSpace(spans.Eq(1).Text()); name != "" {
			return name
		}
	}

	if name := strings.TrimSpace(doc.Find(selDetailSellerLink).First().Text()); name != "" {
		return name
	}

	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	nodes, err := htmlquery.QueryAll(root, xpathSellerSpan)
	if err != nil || len(nodes) < 2 {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(nodes[1]))
}
