package vision

import "fmt"

// ItemCondition is the physical condition of an analyzed item.
type ItemCondition string

const (
	ConditionNewWithTags    ItemCondition = "new_with_tags"
	ConditionNewWithoutTags ItemCondition = "new_without_tags"
	ConditionExcellent      ItemCondition = "excellent"
	ConditionGood           ItemCondition = "good"
	ConditionFair           ItemCondition = "fair"
	ConditionPoor           ItemCondition = "poor"
)

// Conditions lists every ItemCondition in prompt order.
var Conditions = []ItemCondition{
	ConditionNewWithTags,
	ConditionNewWithoutTags,
	ConditionExcellent,
	ConditionGood,
	ConditionFair,
	ConditionPoor,
}

// ParseItemCondition returns the condition named by s. Unknown values are rejected.
func ParseItemCondition(s string) (ItemCondition, error) {
	for _, c := range Conditions {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q is not a valid item condition", s)
}

// ProductCategory is the top-level marketplace category of an item.
type ProductCategory string

const (
	CategoryClothing    ProductCategory = "clothing"
	CategoryShoes       ProductCategory = "shoes"
	CategoryElectronics ProductCategory = "electronics"
	CategoryBooks       ProductCategory = "books"
	CategoryHomeGoods   ProductCategory = "home_goods"
	CategorySports      ProductCategory = "sports"
	CategoryJewelry     ProductCategory = "jewelry"
	CategoryToys        ProductCategory = "toys"
	CategoryAutomotive  ProductCategory = "automotive"
	CategoryOther       ProductCategory = "other"
)

// Categories lists every ProductCategory in prompt order.
var Categories = []ProductCategory{
	CategoryClothing,
	CategoryShoes,
	CategoryElectronics,
	CategoryBooks,
	CategoryHomeGoods,
	CategorySports,
	CategoryJewelry,
	CategoryToys,
	CategoryAutomotive,
	CategoryOther,
}

// ParseProductCategory returns the category named by s. Unknown values are rejected.
func ParseProductCategory(s string) (ProductCategory, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q is not a valid product category", s)
}

const (
	DefaultCurrency        = "USD"
	DefaultPriceSource     = "ai_estimate"
	DefaultPriceConfidence = 0.5
)

// PriceEstimate is a resale value range for an item.
type PriceEstimate struct {
	Low        float64 `json:"low"`
	Mid        float64 `json:"mid"`
	High       float64 `json:"high"`
	Currency   string  `json:"currency"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Ordered reports whether Low <= Mid <= High. The model is asked for this
// but nothing guarantees it.
func (p PriceEstimate) Ordered() bool {
	return p.Low <= p.Mid && p.Mid <= p.High
}

// Usage contains token usage and cost information for one gateway call.
type Usage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// RawResponse is debug data kept alongside an analysis. It is not part of
// the validated record and is never persisted.
type RawResponse struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
}

// AIAnalysis is the validated description of one product photo.
type AIAnalysis struct {
	Category   ProductCategory `json:"category"`
	Brand      *string         `json:"brand"`
	Model      *string         `json:"model"`
	Condition  ItemCondition   `json:"condition"`
	Confidence float64         `json:"confidence"`

	SEOTitle    *string  `json:"seo_title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`

	EstimatedValue PriceEstimate `json:"estimated_value"`

	RawResponse *RawResponse `json:"-"`
}

// Title returns the best short label for the item: the SEO title if set,
// otherwise brand and model, otherwise the category.
func (a *AIAnalysis) Title() string {
	if a.SEOTitle != nil && *a.SEOTitle != "" {
		return *a.SEOTitle
	}
	var s string
	if a.Brand != nil {
		s = *a.Brand
	}
	if a.Model != nil && *a.Model != "" {
		if s != "" {
			s += " "
		}
		s += *a.Model
	}
	if s == "" {
		s = string(a.Category)
	}
	return s
}
