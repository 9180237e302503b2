package types

// AdTier classifies a listing's sponsorship level.
type AdTier string

const (
	AdTierClassic AdTier = "classic"
	AdTierPremium AdTier = "premium"
)

// ListingRecord is one product entry extracted from a search-results page.
type ListingRecord struct {
	// SearchTerm is the originating query, as supplied by the caller.
	SearchTerm string `json:"search_term" bson:"search_term"`

	// Title is the listing headline.
	Title string `json:"title" bson:"title"`

	// Price is the listing price as a currency-agnostic magnitude.
	Price float64 `json:"price" bson:"price"`

	// AdTier is the sponsorship classification (classic unless the
	// premium marker is present).
	AdTier AdTier `json:"ad_tier" bson:"ad_tier"`

	// URL is the absolute link to the product detail page. Unique
	// within one term's result set after deduplication.
	URL string `json:"url" bson:"url"`

	// SellerHint is the seller name as shown on the card, when shown.
	SellerHint string `json:"seller_hint,omitempty" bson:"seller_hint,omitempty"`

	// Position is the 1-based rank within the combined paginated
	// result set, assigned after deduplication.
	Position int `json:"position" bson:"position"`

	// Sponsored marks paid placements repeated across pages.
	Sponsored bool `json:"sponsored,omitempty" bson:"sponsored,omitempty"`

	// Rating and ReviewCount are the list-level review summary; the
	// card does not always carry one.
	Rating      *float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty" bson:"review_count,omitempty"`
}

// DetailRecord holds enrichment fields from a product detail page.
// Every field is optional; the site does not always disclose them.
type DetailRecord struct {
	SellerName  string   `json:"seller_name,omitempty" bson:"seller_name,omitempty"`
	UnitsSold   *int     `json:"units_sold,omitempty" bson:"units_sold,omitempty"`
	Rating      *float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty" bson:"review_count,omitempty"`
}

// MergedRecord is one row of the result table: a listing plus whatever
// detail enrichment completed for it, plus the price-comparison verdict.
type MergedRecord struct {
	ListingRecord `bson:",inline"`

	Detail DetailRecord `json:"detail" bson:"detail"`

	// Enriched reports whether the detail page was successfully
	// loaded; false means the Detail fields were abandoned empty.
	Enriched bool `json:"enriched" bson:"enriched"`

	// OwnStore is true when the seller matches the configured
	// own-store set.
	OwnStore bool `json:"own_store" bson:"own_store"`

	// UndercutByCompetitor is true iff this is a competitor row priced
	// strictly below the minimum own-store price for the same term.
	UndercutByCompetitor bool `json:"undercut_by_competitor" bson:"undercut_by_competitor"`

	// MinOwnPrice is the own-store price baseline for the term, when
	// one exists.
	MinOwnPrice *float64 `json:"min_own_price,omitempty" bson:"min_own_price,omitempty"`
}

// Seller returns the authoritative seller name: the detail-page seller
// when present, the listing hint otherwise.
func (r *MergedRecord) Seller() string {
	if r.Detail.SellerName != "" {
		return r.Detail.SellerName
	}
	return r.SellerHint
}

// Merge folds a detail record into the row. Detail rating and review
// counts only fill gaps; list-level values win when both exist.
func (r *MergedRecord) Merge(d DetailRecord) {
	r.Detail = d
	r.Enriched = true
	if r.Rating == nil {
		r.Rating = d.Rating
	}
	if r.ReviewCount == nil {
		r.ReviewCount = d.ReviewCount
	}
}
