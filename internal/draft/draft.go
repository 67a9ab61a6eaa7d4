// Package draft turns a pain cluster into a publishable post draft. Web
// search snippets ground the draft in current material when available.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadscout/leadscout/internal/enrich"
	"github.com/leadscout/leadscout/internal/provider"
	"github.com/leadscout/leadscout/internal/qualify"
	"github.com/leadscout/leadscout/internal/store"
)

// Searcher is the slice of the enrichment client the drafter needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]enrich.Snippet, error)
}

// Drafter generates and persists post drafts for clusters.
type Drafter struct {
	provider    provider.LLMProvider
	store       *store.Store
	search      Searcher
	model       string
	maxTokens   int
	temperature float64
}

// New builds a Drafter. search may be nil when enrichment is not
// configured.
func New(p provider.LLMProvider, s *store.Store, search Searcher, model string) *Drafter {
	if model == "" {
		model = p.DefaultModel()
	}
	return &Drafter{
		provider:    p,
		store:       s,
		search:      search,
		model:       model,
		maxTokens:   1200,
		temperature: 0.7,
	}
}

type draftReply struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

const draftSystemPrompt = `You write short, useful posts for a founder audience. Given a recurring pain theme with real (anonymized) quotes and optional reference snippets, draft a post that names the problem, shows you understand it, and sketches a practical angle.

Reply with a single JSON object, no other text:
{"title": "<post title>", "body": "<post body, a few paragraphs>"}`

// ForCluster drafts one post for the cluster and stores it. Enrichment
// failure is downgraded to an un-enriched draft; the returned draft's
// WithEnrichment flag records which variant was produced.
func (d *Drafter) ForCluster(ctx context.Context, cluster *store.Cluster) (*store.Draft, error) {
	pains, err := d.store.ListPainsByCluster(ctx, cluster.ID)
	if err != nil {
		return nil, err
	}
	if len(pains) == 0 {
		return nil, fmt.Errorf("cluster %d has no pains to draft from", cluster.ID)
	}

	var snippets []enrich.Snippet
	enriched := false
	if d.search != nil {
		snippets, err = d.search.Search(ctx, cluster.Label+" "+cluster.Category)
		switch {
		case err != nil:
			// Enrichment is best effort; any fetch failure downgrades
			// to an un-enriched draft.
			slog.Warn("drafting without enrichment", "cluster", cluster.ID, "error", err)
			snippets = nil
		case len(snippets) > 0:
			enriched = true
		}
	}

	resp, err := d.provider.Chat(ctx, &provider.ChatRequest{
		Model:       d.model,
		MaxTokens:   d.maxTokens,
		Temperature: d.temperature,
		Messages: []provider.Message{
			{Role: "system", Content: draftSystemPrompt},
			{Role: "user", Content: buildDraftPrompt(cluster, pains, snippets)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("draft call failed: %w", err)
	}

	var reply draftReply
	if err := qualify.DecodeReply(resp.Content, &reply); err != nil {
		return nil, err
	}
	if reply.Title == "" || reply.Body == "" {
		return nil, fmt.Errorf("draft reply missing title or body")
	}

	created, err := d.store.CreateDraft(ctx, &store.Draft{
		ClusterID:      cluster.ID,
		Title:          reply.Title,
		Body:           reply.Body,
		WithEnrichment: enriched,
	})
	if err != nil {
		return nil, err
	}
	if err := d.store.MarkClusterPosted(ctx, cluster.ID); err != nil {
		return nil, err
	}
	return created, nil
}

func buildDraftPrompt(cluster *store.Cluster, pains []*store.Pain, snippets []enrich.Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Theme: %s (category %s)\n", cluster.Label, cluster.Category)
	fmt.Fprintf(&b, "Seen %d times, average intensity %.1f, trend %s\n", cluster.PainCount, cluster.AvgIntensity, cluster.Trend)
	b.WriteString("Quotes:\n")
	for _, p := range pains {
		fmt.Fprintf(&b, "- %q (intensity %d)\n", p.Quote, p.Intensity)
	}
	if len(snippets) > 0 {
		b.WriteString("Reference snippets:\n")
		for _, sn := range snippets {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", sn.Title, sn.Description, sn.URL)
		}
	}
	return b.String()
}
