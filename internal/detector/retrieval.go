package detector

import (
	"context"
	"math"
	"strings"
	"time"
)

// corpusDoc is one snippet in the in-memory retrieval corpus.
type corpusDoc struct {
	ID   string
	Text string
}

// defaultCorpus is the built-in snippet corpus used when the configuration
// does not supply one.
var defaultCorpus = []corpusDoc{
	{ID: "d1", Text: "AI-generated text often shows patterns like repetition and generic phrasing."},
	{ID: "d2", Text: "Human-written content varies in style and may include personal anecdotes."},
	{ID: "d3", Text: "SQLite provides ACID compliance with minimal operational overhead for small systems."},
}

// RetrievalDetector retrieves the top-k most similar corpus snippets by
// term-frequency cosine similarity and derives a label from the average
// similarity. Designed for lightweight demos without an inference backend.
type RetrievalDetector struct {
	docs []corpusDoc
	topK int
}

func init() {
	Default().Register("retrieval", NewRetrievalDetector)
}

// NewRetrievalDetector constructs a retrieval detector.
// Config keys: topk (int), docs ([]map with id/text).
func NewRetrievalDetector(config map[string]any) (Detector, error) {
	d := &RetrievalDetector{
		docs: defaultCorpus,
		topK: configInt(config, "topk", 2),
	}
	if raw, ok := config["docs"].([]any); ok {
		docs := make([]corpusDoc, 0, len(raw))
		for _, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			docs = append(docs, corpusDoc{
				ID:   configString(entry, "id", ""),
				Text: configString(entry, "text", ""),
			})
		}
		if len(docs) > 0 {
			d.docs = docs
		}
	}
	return d, nil
}

// Identify returns the stable identity of this detector.
func (d *RetrievalDetector) Identify() string {
	return "retrieval-minimal"
}

// Detect retrieves the top-k snippets and scores the text against them.
func (d *RetrievalDetector) Detect(ctx context.Context, text string, metadata map[string]any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	queryVec := tfVector(tokenize(text))

	type scoredDoc struct {
		doc   corpusDoc
		score float64
	}
	scored := make([]scoredDoc, 0, len(d.docs))
	for _, doc := range d.docs {
		scored = append(scored, scoredDoc{
			doc:   doc,
			score: cosine(queryVec, tfVector(tokenize(doc.Text))),
		})
	}
	// stable ordering for equal scores keeps results reproducible
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].score > scored[j-1].score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	k := d.topK
	if k > len(scored) {
		k = len(scored)
	}
	top := scored[:k]

	var avgSim float64
	if len(top) > 0 {
		for _, s := range top {
			avgSim += s.score
		}
		avgSim /= float64(len(top))
	}

	topDocs := make([]map[string]any, 0, len(top))
	for _, s := range top {
		topDocs = append(topDocs, map[string]any{
			"id":   s.doc.ID,
			"text": s.doc.Text,
			"sim":  s.score,
		})
	}

	var label string
	var confidence float64
	if strings.Contains(strings.ToLower(text), "ai") && avgSim >= 0.25 {
		label = "AI-generated"
		confidence = min(0.9, 0.6+avgSim)
	} else {
		label = "human-written"
		confidence = min(0.85, 0.5+avgSim)
	}

	return Result{
		Label:      label,
		Confidence: confidence,
		Detector:   d.Identify(),
		Metadata: map[string]any{
			"top_docs":       topDocs,
			"avg_similarity": avgSim,
		},
		Timestamp: time.Now(),
	}, nil
}

// tfVector builds a normalized term-frequency vector.
func tfVector(tokens []string) map[string]float64 {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	total := len(tokens)
	if total == 0 {
		total = 1
	}
	vec := make(map[string]float64, len(counts))
	for k, v := range counts {
		vec[k] = float64(v) / float64(total)
	}
	return vec
}

// cosine computes the cosine similarity of two sparse vectors.
func cosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, av := range a {
		dot += av * b[k]
		na += av * av
	}
	for _, bv := range b {
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
