// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/kbase/pkg/chromadb"
	"github.com/papercomputeco/kbase/pkg/vector"
	"github.com/papercomputeco/kbase/pkg/vector/chroma"
	"github.com/papercomputeco/kbase/pkg/vector/pgvector"
	"github.com/papercomputeco/kbase/pkg/vector/qdrant"
)

// Supported vector store providers.
const (
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderPGVector = "pgvector"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL addresses qdrant (host:port) or postgres (connection URI).
	// Chroma is addressed by Chroma instead.
	TargetURL string

	// Chroma configures the chroma provider.
	Chroma chromadb.Settings

	CollectionName string
	Dimensions     uint
	Logger         *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderChroma, "":
		return chroma.NewDriver(chroma.Config{
			Settings:       o.Chroma,
			CollectionName: o.CollectionName,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:         o.TargetURL,
			CollectionName: o.CollectionName,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderPGVector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString:     o.TargetURL,
			CollectionName: o.CollectionName,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
