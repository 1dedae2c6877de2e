// ABOUTME: Validation scorecard parsed from a vision model's JSON answer.
// ABOUTME: Tolerates markdown code fences and falls back to a neutral passing card on bad JSON.
package steps

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scorecard is the structured verdict on a generated image.
type Scorecard struct {
	OverallScore     float64  `json:"overall_score" yaml:"overall_score"`
	AnatomicalScore  float64  `json:"anatomical_score" yaml:"anatomical_score"`
	QualityScore     float64  `json:"quality_score" yaml:"quality_score"`
	Issues           []string `json:"issues" yaml:"issues"`
	Recommendations  []string `json:"recommendations" yaml:"recommendations"`
	Passed           bool     `json:"passed" yaml:"passed"`
	DetailedAnalysis string   `json:"detailed_analysis" yaml:"detailed_analysis"`
}

// rawScorecard accepts loosely typed model output.
type rawScorecard struct {
	OverallScore     *float64 `json:"overall_score"`
	AnatomicalScore  *float64 `json:"anatomical_score"`
	QualityScore     *float64 `json:"quality_score"`
	Issues           []any    `json:"issues"`
	Recommendations  []any    `json:"recommendations"`
	Passed           *bool    `json:"passed"`
	DetailedAnalysis string   `json:"detailed_analysis"`
}

// fallbackScore is reported when the model's answer is not parseable JSON.
const fallbackScore = 75

// ParseScorecard extracts a scorecard from the model's answer. The boolean
// reports whether the answer parsed; when it did not, the returned card is
// the neutral fallback carrying the raw text as its analysis.
func ParseScorecard(text string) (Scorecard, bool) {
	body := stripCodeFence(text)

	var raw rawScorecard
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Scorecard{
			OverallScore:     fallbackScore,
			AnatomicalScore:  fallbackScore,
			QualityScore:     fallbackScore,
			Issues:           []string{},
			Recommendations:  []string{},
			Passed:           true,
			DetailedAnalysis: body,
		}, false
	}

	card := Scorecard{
		OverallScore:     deref(raw.OverallScore),
		AnatomicalScore:  deref(raw.AnatomicalScore),
		QualityScore:     deref(raw.QualityScore),
		Issues:           stringify(raw.Issues),
		Recommendations:  stringify(raw.Recommendations),
		Passed:           true,
		DetailedAnalysis: raw.DetailedAnalysis,
	}
	if raw.Passed != nil {
		card.Passed = *raw.Passed
	}
	return card, true
}

// stripCodeFence returns the contents of the first ```json (or bare ```)
// block, or the trimmed text when there is none.
func stripCodeFence(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(text)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func stringify(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// Map renders the scorecard as plain context data.
func (s Scorecard) Map() map[string]any {
	return map[string]any{
		"overall_score":     s.OverallScore,
		"anatomical_score":  s.AnatomicalScore,
		"quality_score":     s.QualityScore,
		"issues":            toAnySlice(s.Issues),
		"recommendations":   toAnySlice(s.Recommendations),
		"passed":            s.Passed,
		"detailed_analysis": s.DetailedAnalysis,
	}
}

// Scores returns the three headline scores.
func (s Scorecard) Scores() map[string]any {
	return map[string]any{
		"overall":    s.OverallScore,
		"anatomical": s.AnatomicalScore,
		"quality":    s.QualityScore,
	}
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
