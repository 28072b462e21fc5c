package detector

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Default configuration for the heuristic detector.
const (
	defaultThresholdLength = 600
	heuristicRepetitionCut = 0.45
)

// HeuristicDetector is a lightweight, dependency-free detector that scores
// text on length and token repetition. It exists as the always-available
// default so the pipeline works without any inference backend.
type HeuristicDetector struct {
	thresholdLength int
}

func init() {
	Default().Register("heuristic", NewHeuristicDetector)
}

// NewHeuristicDetector constructs a heuristic detector.
// Config keys: thresholdlength (int).
func NewHeuristicDetector(config map[string]any) (Detector, error) {
	return &HeuristicDetector{
		thresholdLength: configInt(config, "thresholdlength", defaultThresholdLength),
	}, nil
}

// Identify returns the stable identity of this detector.
func (d *HeuristicDetector) Identify() string {
	return "heuristic-v1"
}

// Detect classifies text by length and unique-token ratio. Long texts with
// heavy token repetition are labeled AI-generated, long texts without are
// labeled suspicious, short texts are labeled human-written.
func (d *HeuristicDetector) Detect(ctx context.Context, text string, metadata map[string]any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tokens := tokenize(text)
	unique := uniqueRatio(tokens)
	long := len([]rune(text)) >= d.thresholdLength

	var label string
	var confidence float64
	switch {
	case long && unique < heuristicRepetitionCut:
		label = "AI-generated"
		confidence = min(0.9, 0.6+(heuristicRepetitionCut-unique))
	case long:
		label = "suspicious"
		confidence = min(0.75, 0.45+unique/4)
	default:
		label = "human-written"
		confidence = min(0.85, 0.55+unique/4)
	}

	return Result{
		Label:      label,
		Confidence: confidence,
		Detector:   d.Identify(),
		Metadata: map[string]any{
			"length":           len([]rune(text)),
			"unique_ratio":     unique,
			"threshold_length": d.thresholdLength,
		},
		Timestamp: time.Now(),
	}, nil
}

// tokenize splits text into lowercase alphanumeric tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return fields
}

// uniqueRatio returns the share of distinct tokens, 1.0 for empty input.
func uniqueRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 1.0
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return float64(len(seen)) / float64(len(tokens))
}
