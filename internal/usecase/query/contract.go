package query

import (
	"context"

	"github.com/kailas-cloud/docquery/internal/domain"
)

// Resolver turns a query into a response. Implementations never return
// errors: every failure is folded into a KO Response.
type Resolver interface {
	Resolve(ctx context.Context, q domain.Query) domain.Response
}

// Connector makes sure a vector store client exists before any work is done.
type Connector interface {
	Connect(ctx context.Context) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher returns the single best match for a vector within a category.
type Searcher interface {
	Best(ctx context.Context, category string, vector []float32) (domain.Match, error)
}

// ContentLoader reads the document a match points to.
type ContentLoader interface {
	Load(ctx context.Context, path string) (string, error)
}
