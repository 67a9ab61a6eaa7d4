// Package pain normalizes and persists pain signals surfaced during
// qualification. Quotes are anonymized before storage and deduplicated per
// lead.
package pain

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leadscout/leadscout/internal/qualify"
	"github.com/leadscout/leadscout/internal/store"
)

// Categories is the controlled vocabulary. Anything the model invents
// outside it is folded into "general" so clustering stays comparable across
// runs.
var Categories = map[string]bool{
	"pricing":     true,
	"tooling":     true,
	"time":        true,
	"hiring":      true,
	"sales":       true,
	"marketing":   true,
	"product":     true,
	"support":     true,
	"integration": true,
	"growth":      true,
	"general":     true,
}

// NormalizeCategory maps a model-provided category into the vocabulary.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if Categories[c] {
		return c
	}
	return "general"
}

// Collector writes extracted pains for qualified leads.
type Collector struct {
	store *store.Store
}

// NewCollector builds a Collector on the store.
func NewCollector(s *store.Store) *Collector {
	return &Collector{store: s}
}

// Collect persists the pain signals for one qualified lead and returns how
// many new rows landed. Signals with an empty quote are dropped; duplicates
// of already stored quotes are silently skipped.
func (c *Collector) Collect(ctx context.Context, lead *store.Lead, signals []qualify.PainSignal) (int, error) {
	inserted := 0
	for _, sig := range signals {
		quote := Anonymize(sig.Quote)
		if quote == "" {
			continue
		}
		intensity := sig.Intensity
		if intensity < 1 {
			intensity = 1
		} else if intensity > 5 {
			intensity = 5
		}
		p := &store.Pain{
			LeadID:    lead.ID,
			ProgramID: lead.ProgramID,
			Category:  NormalizeCategory(sig.Category),
			Intensity: intensity,
			Quote:     quote,
		}
		ok, err := c.store.InsertPain(ctx, p)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		} else {
			slog.Debug("duplicate pain skipped", "lead", lead.ID, "category", p.Category)
		}
	}
	return inserted, nil
}
