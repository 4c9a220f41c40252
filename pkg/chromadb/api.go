package chromadb

import (
	"context"

	"github.com/papercomputeco/kbase/pkg/chromadb/store"
)

// Request and response shapes are shared with the store so the REST wire
// format and the in-process API cannot drift.
type (
	CollectionModel         = store.Collection
	CreateCollectionRequest = store.CreateCollectionRequest
	AddRequest              = store.AddRequest
	QueryRequest            = store.QueryRequest
	QueryResponse           = store.QueryResponse
	GetRequest              = store.GetRequest
	GetResponse             = store.GetResponse
	DeleteRequest           = store.DeleteRequest
	Include                 = store.Include
)

const (
	IncludeDocuments  = store.IncludeDocuments
	IncludeMetadatas  = store.IncludeMetadatas
	IncludeDistances  = store.IncludeDistances
	IncludeEmbeddings = store.IncludeEmbeddings

	// SpaceKey is the collection metadata key selecting the distance metric.
	SpaceKey    = store.SpaceKey
	SpaceL2     = store.SpaceL2
	SpaceCosine = store.SpaceCosine
)

// API is the set of operations a Client can perform, implemented in-process
// by localAPI and over HTTP by restAPI.
type API interface {
	// Heartbeat returns the server clock in nanoseconds.
	Heartbeat(ctx context.Context) (int64, error)

	// Version returns the server version string.
	Version(ctx context.Context) (string, error)

	ListCollections(ctx context.Context) ([]*CollectionModel, error)
	CreateCollection(ctx context.Context, req *CreateCollectionRequest) (*CollectionModel, error)
	GetCollection(ctx context.Context, nameOrID string) (*CollectionModel, error)
	DeleteCollection(ctx context.Context, nameOrID string) error

	Add(ctx context.Context, collectionID string, req *AddRequest) error
	Upsert(ctx context.Context, collectionID string, req *AddRequest) error
	Query(ctx context.Context, collectionID string, req *QueryRequest) (*QueryResponse, error)
	Get(ctx context.Context, collectionID string, req *GetRequest) (*GetResponse, error)
	Delete(ctx context.Context, collectionID string, req *DeleteRequest) error
	Count(ctx context.Context, collectionID string) (int, error)

	// Close releases resources held by the implementation.
	Close() error
}
