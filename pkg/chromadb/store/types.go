package store

import "time"

// Include selects which optional fields are returned by Get and Query.
type Include string

const (
	IncludeDocuments  Include = "documents"
	IncludeMetadatas  Include = "metadatas"
	IncludeDistances  Include = "distances"
	IncludeEmbeddings Include = "embeddings"
)

// Metric names accepted in the "hnsw:space" collection metadata key.
const (
	SpaceKey    = "hnsw:space"
	SpaceL2     = "l2"
	SpaceCosine = "cosine"
)

// Collection is a named group of embeddings sharing one dimension and metric.
type Collection struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Metadata  map[string]any `json:"metadata"`
	Dimension *int           `json:"dimension"`
	Tenant    string         `json:"tenant"`
	Database  string         `json:"database"`
	CreatedAt time.Time      `json:"-"`
}

// Space returns the distance metric configured for the collection.
func (c *Collection) Space() string {
	if c.Metadata != nil {
		if s, ok := c.Metadata[SpaceKey].(string); ok && s != "" {
			return s
		}
	}
	return SpaceL2
}

// CreateCollectionRequest is the body of a collection create call.
type CreateCollectionRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GetOrCreate bool           `json:"get_or_create,omitempty"`
}

// AddRequest carries records for Add and Upsert. Documents and Metadatas
// are optional but, when present, must be parallel to IDs.
type AddRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Documents  []string         `json:"documents,omitempty"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
}

// QueryRequest is a nearest neighbour search over one collection.
type QueryRequest struct {
	QueryEmbeddings [][]float32    `json:"query_embeddings"`
	NResults        int            `json:"n_results,omitempty"`
	Where           map[string]any `json:"where,omitempty"`
	Include         []Include      `json:"include,omitempty"`
}

// QueryResponse holds one result group per query embedding.
type QueryResponse struct {
	IDs        [][]string         `json:"ids"`
	Documents  [][]string         `json:"documents"`
	Metadatas  [][]map[string]any `json:"metadatas"`
	Distances  [][]float32        `json:"distances"`
	Embeddings [][][]float32      `json:"embeddings"`
}

// GetRequest selects records by id and/or metadata filter.
type GetRequest struct {
	IDs     []string       `json:"ids,omitempty"`
	Where   map[string]any `json:"where,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
	Include []Include      `json:"include,omitempty"`
}

// GetResponse holds flat, parallel result slices.
type GetResponse struct {
	IDs        []string         `json:"ids"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas"`
	Embeddings [][]float32      `json:"embeddings"`
}

// DeleteRequest removes records by id and/or metadata filter.
type DeleteRequest struct {
	IDs   []string       `json:"ids,omitempty"`
	Where map[string]any `json:"where,omitempty"`
}

var (
	defaultGetInclude   = []Include{IncludeDocuments, IncludeMetadatas}
	defaultQueryInclude = []Include{IncludeDocuments, IncludeMetadatas, IncludeDistances}
)

func includes(set []Include, want Include) bool {
	for _, inc := range set {
		if inc == want {
			return true
		}
	}
	return false
}
