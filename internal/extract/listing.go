// Package extract turns raw DOM fragments into typed records. The
// fragments come from a live, unversioned site, so every extractor is a
// pure function over an HTML string with fixture-based tests; selector
// lists carry both the current and the previous generation of the
// site's markup.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rbarroso/mlwatch/internal/types"
)

// Selector generations for the listing card layout.
const (
	selCardTitle      = "a.poly-component__title, a.ui-search-link"
	selCardFraction   = "span.andes-money-amount__fraction, span.price-tag-fraction"
	selCardCents      = "span.andes-money-amount__cents, span.price-tag-cents"
	selCardPromoted   = ".poly-component__ads-promotions"
	selCardInstall    = "span.poly-price__installments"
	selCardRating     = ".poly-reviews__rating"
	selCardReviewsTot = ".poly-reviews__total"
	selCardSeller     = "span.poly-component__seller"
)

// Listing parses one search-result card fragment into a ListingRecord.
// Title, price and URL are required; everything else is best effort.
func Listing(term, fragment string) (types.ListingRecord, error) {
	var rec types.ListingRecord

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return rec, &types.ExtractionError{Field: "fragment", Err: err}
	}

	rec.SearchTerm = term
	rec.AdTier = types.AdTierClassic

	title := doc.Find(selCardTitle).First()
	rec.Title = strings.TrimSpace(title.Text())
	if rec.Title == "" {
		return rec, &types.ExtractionError{Field: "title"}
	}

	href, _ := title.Attr("href")
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return rec, &types.ExtractionError{Field: "url"}
	}
	rec.URL = href

	priceText := strings.TrimSpace(doc.Find(selCardFraction).First().Text())
	if priceText == "" {
		return rec, &types.ExtractionError{Field: "price"}
	}
	if cents := strings.TrimSpace(doc.Find(selCardCents).First().Text()); cents != "" {
		priceText = priceText + "," + cents
	}
	price, err := Price(priceText)
	if err != nil {
		return rec, &types.ExtractionError{Field: "price", Err: err}
	}
	rec.Price = price

	// Premium is a closed two-way call: the interest-free installment
	// marker is present or it is not.
	inst := strings.ToLower(doc.Find(selCardInstall).First().Text())
	if strings.Contains(inst, "sem juros") {
		rec.AdTier = types.AdTierPremium
	}

	rec.Sponsored = doc.Find(selCardPromoted).Length() > 0

	if v, ok := ratingValue(doc.Find(selCardRating).First().Text()); ok {
		rec.Rating = &v
	}
	if n, ok := Count(doc.Find(selCardReviewsTot).First().Text()); ok {
		rec.ReviewCount = &n
	}

	if seller := strings.TrimSpace(doc.Find(selCardSeller).First().Text()); seller != "" {
		rec.SellerHint = strings.TrimSpace(strings.TrimPrefix(seller, "Por "))
	}

	return rec, nil
}
