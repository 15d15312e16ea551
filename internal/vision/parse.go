package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var requiredFields = []string{"category", "condition", "confidence", "estimated_value"}

var requiredPriceFields = []string{"low", "mid", "high"}

// cleanResponseText removes the markdown fence models tend to add despite
// being told not to.
func cleanResponseText(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// ParseResponse converts the model's text into a validated AIAnalysis.
// Failures are *Error values of kind MalformedResponse, MissingField or
// InvalidEnumValue.
func ParseResponse(text string) (*AIAnalysis, error) {
	cleaned := cleanResponseText(text)

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, malformedResponse(text, err)
	}
	if doc == nil {
		return nil, malformedResponse(text, errors.New("response is not a JSON object"))
	}

	for _, field := range requiredFields {
		if _, ok := doc[field]; !ok {
			return nil, missingField(field)
		}
	}

	category, err := parseEnum(doc, "category", ParseProductCategory)
	if err != nil {
		return nil, err
	}
	condition, err := parseEnum(doc, "condition", ParseItemCondition)
	if err != nil {
		return nil, err
	}

	value, ok := doc["estimated_value"].(map[string]any)
	if !ok {
		return nil, malformedResponse(text, errors.New("estimated_value must be an object"))
	}
	for _, field := range requiredPriceFields {
		if _, ok := value[field]; !ok {
			return nil, missingField("estimated_value." + field)
		}
	}

	if err := validateResponseTypes(doc); err != nil {
		return nil, malformedResponse(text, err)
	}

	confidence, err := toFloat(doc["confidence"])
	if err != nil {
		return nil, malformedResponse(text, fmt.Errorf("confidence: %w", err))
	}

	estimate, err := parsePriceEstimate(value)
	if err != nil {
		return nil, malformedResponse(text, err)
	}

	return &AIAnalysis{
		Category:       category,
		Brand:          optionalString(doc, "brand"),
		Model:          optionalString(doc, "model"),
		Condition:      condition,
		Confidence:     confidence,
		SEOTitle:       optionalString(doc, "seo_title"),
		Description:    optionalString(doc, "description"),
		Tags:           stringSlice(doc["tags"]),
		EstimatedValue: estimate,
	}, nil
}

func parseEnum[T ~string](doc map[string]any, field string, parse func(string) (T, error)) (T, error) {
	var zero T
	raw := doc[field]
	s, ok := raw.(string)
	if !ok {
		return zero, invalidEnumValue(field, raw)
	}
	v, err := parse(s)
	if err != nil {
		return zero, invalidEnumValue(field, s)
	}
	return v, nil
}

func parsePriceEstimate(value map[string]any) (PriceEstimate, error) {
	estimate := PriceEstimate{
		Currency:   DefaultCurrency,
		Confidence: DefaultPriceConfidence,
		Source:     DefaultPriceSource,
	}

	targets := map[string]*float64{
		"low":  &estimate.Low,
		"mid":  &estimate.Mid,
		"high": &estimate.High,
	}
	for _, field := range requiredPriceFields {
		f, err := toFloat(value[field])
		if err != nil {
			return estimate, fmt.Errorf("estimated_value.%s: %w", field, err)
		}
		*targets[field] = f
	}

	if currency, ok := value["currency"].(string); ok {
		estimate.Currency = currency
	}
	if raw, ok := value["confidence"]; ok && raw != nil {
		f, err := toFloat(raw)
		if err != nil {
			return estimate, fmt.Errorf("estimated_value.confidence: %w", err)
		}
		estimate.Confidence = f
	}

	return estimate, nil
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func optionalString(doc map[string]any, key string) *string {
	s, ok := doc[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func stringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
