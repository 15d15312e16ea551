// Package report renders analysis results for people and for files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/loopapp/loop-vision/internal/vision"
)

const banner = "=================================================="

func formatText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "Unknown"
	}
	return *s
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Format renders the human-readable summary printed by the CLI.
func Format(a *vision.AIAnalysis) string {
	v := a.EstimatedValue
	body := formatText(`
		%s
		LOOP AI ANALYSIS RESULTS
		%s
		Category: %s
		Brand: %s
		Model: %s
		Condition: %s
		Confidence: %.2f%%
		Estimated Value: $%.2f %s
		Price Range: $%.2f - $%.2f
		SEO Title: %s
		Tags: %s
		`,
		banner,
		banner,
		a.Category,
		orUnknown(a.Brand),
		orUnknown(a.Model),
		a.Condition,
		a.Confidence*100,
		v.Mid, v.Currency,
		v.Low, v.High,
		orEmpty(a.SEOTitle),
		strings.Join(a.Tags, ", "),
	)
	return "\n" + body + "\n\nDescription:\n" + orEmpty(a.Description) + "\n"
}

// Print writes Format(a) to w.
func Print(w io.Writer, a *vision.AIAnalysis) error {
	_, err := io.WriteString(w, Format(a))
	return err
}

// Marshal encodes the analysis as indented JSON. The raw model response is
// never included.
func Marshal(a *vision.AIAnalysis) ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// SaveJSON writes the analysis to path.
func SaveJSON(path string, a *vision.AIAnalysis) error {
	data, err := Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
