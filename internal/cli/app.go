package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leadscout/leadscout/internal/cluster"
	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/draft"
	"github.com/leadscout/leadscout/internal/enrich"
	"github.com/leadscout/leadscout/internal/provider"
	"github.com/leadscout/leadscout/internal/qualify"
	"github.com/leadscout/leadscout/internal/runner"
	"github.com/leadscout/leadscout/internal/source"
	"github.com/leadscout/leadscout/internal/store"
)

// app bundles everything a command needs after config load.
type app struct {
	cfg      *config.Config
	store    *store.Store
	provider *provider.OpenAIProvider
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(config.DatabasePath(cfg))
	if err != nil {
		return nil, err
	}
	st.WeeklyFreeQuota = cfg.Pipeline.WeeklyFreeQuota

	prov := provider.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)
	return &app{cfg: cfg, store: st, provider: prov}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("store close failed", "error", err)
	}
}

func (a *app) connector() (source.Connector, error) {
	switch a.cfg.Source.Kind {
	case "kafka":
		return source.NewKafkaConnector(a.cfg.Source.KafkaBrokers, a.cfg.Source.ActivityTopic, a.cfg.Source.ConsumerGroup), nil
	case "bridge":
		return source.NewBridgeConnector(a.cfg.Source.BridgeURL), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", a.cfg.Source.Kind)
	}
}

func (a *app) clusterer() *cluster.Clusterer {
	var sim cluster.Similarity = cluster.Lexical{}
	if a.cfg.Cluster.Mode == "embedding" {
		sim = cluster.NewEmbedding(a.provider, a.cfg.Model.EmbeddingModel)
	}
	return cluster.New(a.store, sim, cluster.Config{
		SimilarityThreshold: a.cfg.Cluster.SimilarityThreshold,
		TrendWindow:         a.cfg.Cluster.TrendWindow,
		TrendMinSamples:     a.cfg.Cluster.TrendMinSamples,
		TrendMargin:         a.cfg.Cluster.TrendMargin,
	})
}

func (a *app) runner() (*runner.Runner, error) {
	conn, err := a.connector()
	if err != nil {
		return nil, err
	}
	q := qualify.New(a.provider, a.cfg.Model.Name,
		qualify.WithRetries(a.cfg.Pipeline.RetryAttempts, a.cfg.Pipeline.RetryBaseDelay))
	return runner.New(a.store, conn, q, a.clusterer(), a.cfg.Safety, a.cfg.Pipeline), nil
}

func (a *app) drafter() *draft.Drafter {
	var search draft.Searcher
	if a.cfg.Enrichment.APIKey != "" {
		search = enrich.NewClient(a.cfg.Enrichment.APIKey, a.cfg.Enrichment.APIBase,
			a.cfg.Enrichment.MaxResults, a.cfg.Enrichment.Timeout)
	}
	return draft.New(a.provider, a.store, search, a.cfg.Model.DraftModel)
}
