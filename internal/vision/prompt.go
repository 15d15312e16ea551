package vision

import (
	"fmt"
	"strings"
)

const analysisPromptTemplate = `You are an expert product identification AI for LOOP, an instant liquidation app.

Analyze this product image and return a JSON object with the following fields:

{
  "category": "one of: %s",
  "brand": "brand name if identifiable, null otherwise",
  "model": "specific model name/version if identifiable, null otherwise",
  "condition": "one of: %s",
  "confidence": 0.0-1.0 (how confident you are in your identification),
  "seo_title": "SEO-optimized title for marketplace listing (50-80 chars)",
  "description": "Detailed product description for selling (200-500 chars)",
  "tags": ["array", "of", "relevant", "tags"],
  "estimated_value": {
    "low": number (realistic low end resale value),
    "mid": number (most likely resale value),
    "high": number (optimistic high end),
    "currency": "USD",
    "confidence": 0.0-1.0
  }
}

Guidelines:
- Be realistic about condition - most items are "good" or "fair", not "excellent"
- Research current market values for similar items
- Focus on resalable items (no trash, damaged goods unless valuable)
- If unsure about brand/model, set to null rather than guess
- Confidence should reflect how clear the image is and how distinctive the item is
- SEO title should include brand, model, condition, key features
- Description should highlight positives and be honest about flaws

Return ONLY valid JSON, no markdown or explanation.`

// analysisPrompt is rendered once from the enum tables so the prompt and
// the parser accept the same values.
var analysisPrompt = buildAnalysisPrompt()

func buildAnalysisPrompt() string {
	categories := make([]string, len(Categories))
	for i, c := range Categories {
		categories[i] = string(c)
	}
	conditions := make([]string, len(Conditions))
	for i, c := range Conditions {
		conditions[i] = string(c)
	}
	return fmt.Sprintf(analysisPromptTemplate, strings.Join(categories, ", "), strings.Join(conditions, ", "))
}

// AnalysisPrompt returns the fixed instruction sent with every image.
func AnalysisPrompt() string {
	return analysisPrompt
}
