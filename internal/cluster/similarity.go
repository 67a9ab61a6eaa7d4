package cluster

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/leadscout/leadscout/internal/provider"
	"github.com/leadscout/leadscout/internal/store"
)

// Similarity scores how well a pain fits an existing cluster, in [0, 1].
// A category mismatch always scores 0; clusters never mix categories.
type Similarity interface {
	Score(ctx context.Context, p *store.Pain, c *store.Cluster, members []*store.Pain) (float64, error)
}

// Lexical scores by Jaccard overlap of quote tokens. It is the default
// mode and needs no external calls.
type Lexical struct{}

// Score implements Similarity. The pain is compared against each member
// quote and the cluster label; the best overlap wins.
func (Lexical) Score(_ context.Context, p *store.Pain, c *store.Cluster, members []*store.Pain) (float64, error) {
	if p.Category != c.Category {
		return 0, nil
	}
	painTokens := tokens(p.Quote)
	if len(painTokens) == 0 {
		return 0, nil
	}
	best := jaccard(painTokens, tokens(c.Label))
	for _, m := range members {
		if score := jaccard(painTokens, tokens(m.Quote)); score > best {
			best = score
		}
	}
	return best, nil
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"i": true, "we": true, "my": true, "our": true, "it": true, "its": true,
	"to": true, "of": true, "for": true, "and": true, "or": true, "in": true,
	"on": true, "at": true, "so": true, "too": true, "very": true,
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if len(w) < 2 || stopwords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Embedding scores by cosine similarity of embedding vectors. Member
// quotes are not embedded individually; the cluster is represented by its
// label, which keeps one provider call per comparison.
type Embedding struct {
	embedder provider.Embedder
	model    string
}

// NewEmbedding builds an embedding-backed similarity on the provider.
func NewEmbedding(e provider.Embedder, model string) *Embedding {
	return &Embedding{embedder: e, model: model}
}

// Score implements Similarity.
func (e *Embedding) Score(ctx context.Context, p *store.Pain, c *store.Cluster, _ []*store.Pain) (float64, error) {
	if p.Category != c.Category {
		return 0, nil
	}
	pv, err := e.embed(ctx, p.Quote)
	if err != nil {
		return 0, err
	}
	cv, err := e.embed(ctx, c.Label)
	if err != nil {
		return 0, err
	}
	return cosine(pv, cv), nil
}

func (e *Embedding) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &provider.EmbeddingRequest{Input: text, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return resp.Vector, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
