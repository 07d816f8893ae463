package model

// Default per-type selector rule sets.
//
// These rule sets encode the markup conventions each page family tends to
// follow: news sites wrap stories in <article> or .news-item containers,
// shops annotate products with .product or [data-product], social feeds use
// .tweet/.post/.status blocks. A target that carries no custom rules gets
// the set matching its scrape type.
//
// Design decision: Defaults are plain data rather than code because:
//  1. The extractor stays a generic rule interpreter with no per-type logic
//  2. Users can inspect the defaults (websift init writes them as YAML)
//  3. Custom rules replace the defaults wholesale, so both travel the same
//     code path
//
// Value bounds (MinRunes/MaxRunes) keep broad selectors from flooding
// records with page boilerplate: summaries cap at 200 runes, social content
// at 300, generic text at 500, and generic text under 20 runes is dropped.

// Rune bounds used by the default rule sets.
const (
	// DefaultSummaryMaxRunes caps news summary values.
	DefaultSummaryMaxRunes = 200

	// DefaultContentMaxRunes caps social post content values.
	DefaultContentMaxRunes = 300

	// DefaultTextMaxRunes caps generic text values.
	DefaultTextMaxRunes = 500

	// DefaultTextMinRunes drops generic text fragments shorter than this.
	// Navigation labels, button captions, and similar noise rarely reach
	// 20 runes.
	DefaultTextMinRunes = 20
)

// DefaultRules returns the built-in selector rule set for a scrape type.
// The returned slice is a fresh copy; callers may modify it freely.
// Unknown types fall back to the generic set.
func DefaultRules(t ScrapeType) []SelectorRule {
	var src []SelectorRule
	switch t {
	case TypeNews:
		src = defaultNewsRules
	case TypeProduct:
		src = defaultProductRules
	case TypeSocial:
		src = defaultSocialRules
	default:
		src = defaultGenericRules
	}
	rules := make([]SelectorRule, len(src))
	copy(rules, src)
	return rules
}

var defaultNewsRules = []SelectorRule{
	{FieldName: "title", Path: "h1, .headline, .article-title", Transform: TransformText},
	{
		FieldName: "headlines",
		Path:      "article h2, article h3, .article .title, .news-item .title, .post .title, .story .title, .news-story .title",
		Multiple:  true,
		Transform: TransformText,
	},
	{
		FieldName: "links",
		Path:      "article a, .article a, .news-item a, .post a, .story a, .news-story a",
		Multiple:  true,
		Transform: TransformAttribute,
		Attribute: "href",
	},
	{
		FieldName: "summaries",
		Path:      "article p, .article p, .post p, .summary, .excerpt",
		Multiple:  true,
		Transform: TransformText,
		MaxRunes:  DefaultSummaryMaxRunes,
	},
	{
		FieldName: "dates",
		Path:      "time[datetime], [datetime]",
		Multiple:  true,
		Transform: TransformAttribute,
		Attribute: "datetime",
	},
	{
		FieldName: "authors",
		Path:      `.author, .byline, [rel="author"]`,
		Multiple:  true,
		Transform: TransformText,
	},
}

var defaultProductRules = []SelectorRule{
	{
		FieldName: "names",
		Path:      ".product .name, .product .title, .product-item .name, .product-card .title, .item .name, .listing-item .title, [data-product] .name",
		Multiple:  true,
		Transform: TransformText,
	},
	{
		FieldName: "prices",
		Path:      ".price, .product-price, [data-price], .cost, .amount",
		Multiple:  true,
		Transform: TransformNumber,
	},
	{
		FieldName: "ratings",
		Path:      ".rating, .stars, [data-rating]",
		Multiple:  true,
		Transform: TransformNumber,
	},
	{
		FieldName: "links",
		Path:      ".product a, .item a, .product-item a, .product-card a, .listing-item a",
		Multiple:  true,
		Transform: TransformAttribute,
		Attribute: "href",
	},
	{
		FieldName: "images",
		Path:      ".product img, .item img, .product-card img, .listing-item img",
		Multiple:  true,
		Transform: TransformAttribute,
		Attribute: "src",
	},
	{
		FieldName: "availability",
		Path:      ".availability, .stock, .in-stock, .out-of-stock",
		Multiple:  true,
		Transform: TransformText,
	},
}

var defaultSocialRules = []SelectorRule{
	{
		FieldName: "authors",
		Path:      ".tweet .author, .post .author, .status .username, .message .user, .update .author, [data-author]",
		Multiple:  true,
		Transform: TransformText,
	},
	{
		FieldName: "content",
		Path:      ".tweet .content, .tweet .text, .post .content, .status .text, .message .body, .update .text",
		Multiple:  true,
		Transform: TransformText,
		MaxRunes:  DefaultContentMaxRunes,
	},
	{
		FieldName: "timestamps",
		Path:      ".tweet time[datetime], .post time[datetime], .status time[datetime], [data-time]",
		Multiple:  true,
		Transform: TransformAttribute,
		Attribute: "datetime",
	},
	{
		FieldName: "likes",
		Path:      ".likes, .like-count, [data-likes]",
		Multiple:  true,
		Transform: TransformNumber,
	},
	{
		FieldName: "hashtags",
		Path:      `.hashtag, a[href*="/tag/"], a[href^="#"]`,
		Multiple:  true,
		Transform: TransformText,
	},
}

var defaultGenericRules = []SelectorRule{
	{FieldName: "title", Path: "title", Transform: TransformText},
	{
		FieldName: "text",
		Path:      "p, div, span, h1, h2, h3, li, td",
		Multiple:  true,
		Transform: TransformText,
		MinRunes:  DefaultTextMinRunes,
		MaxRunes:  DefaultTextMaxRunes,
	},
	{
		FieldName: "links",
		Path:      "a[href]",
		Multiple:  true,
		Transform: TransformAttribute,
		Attribute: "href",
	},
}
