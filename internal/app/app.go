// Package app wires the recommendation pipeline from config for the binaries.
package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"bookrec/internal/config"
	"bookrec/internal/recommend"
	"bookrec/internal/search"
	"bookrec/internal/storage/catalog"
	"bookrec/internal/storage/weaviate"
)

// Pipeline holds everything a process needs to answer recommendation requests.
type Pipeline struct {
	Weaviate    *weaviate.Client
	Search      *search.Service
	Catalog     *catalog.Store
	Recommender *recommend.Service
}

// Build connects the vector service client, the search filter and the cover catalog.
// The catalog is optional: if it can't be opened, covers are just not shown.
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger) *Pipeline {
	client := weaviate.New(cfg.Weaviate, log)
	svc := search.New(client, client.ClassName(), cfg.Search)
	p := &Pipeline{Weaviate: client, Search: svc}

	var covers recommend.Covers
	if cfg.Catalog.Path != "" {
		store, err := catalog.Open(ctx, cfg.Catalog.Path)
		if err != nil {
			log.WithError(err).WithField("path", cfg.Catalog.Path).Warn("catalog.unavailable")
		} else {
			p.Catalog = store
			covers = store
		}
	}

	p.Recommender = recommend.New(svc, covers)
	return p
}

func (p *Pipeline) Close() {
	if p.Catalog != nil {
		_ = p.Catalog.Close()
	}
}
