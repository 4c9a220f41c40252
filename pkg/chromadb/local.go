package chromadb

import (
	"context"
	"time"

	"github.com/papercomputeco/kbase/pkg/chromadb/store"
	"github.com/papercomputeco/kbase/pkg/utils"
)

// localAPI serves API calls from an in-process store.
type localAPI struct {
	store *store.Store
}

func newLocalAPI(s *store.Store) *localAPI {
	return &localAPI{store: s}
}

func (l *localAPI) Heartbeat(context.Context) (int64, error) {
	return time.Now().UnixNano(), nil
}

func (l *localAPI) Version(context.Context) (string, error) {
	return utils.Version, nil
}

func (l *localAPI) ListCollections(ctx context.Context) ([]*CollectionModel, error) {
	return l.store.ListCollections(ctx)
}

func (l *localAPI) CreateCollection(ctx context.Context, req *CreateCollectionRequest) (*CollectionModel, error) {
	return l.store.CreateCollection(ctx, req)
}

func (l *localAPI) GetCollection(ctx context.Context, nameOrID string) (*CollectionModel, error) {
	return l.store.GetCollection(ctx, nameOrID)
}

func (l *localAPI) DeleteCollection(ctx context.Context, nameOrID string) error {
	return l.store.DeleteCollection(ctx, nameOrID)
}

func (l *localAPI) Add(ctx context.Context, collectionID string, req *AddRequest) error {
	return l.store.Add(ctx, collectionID, req)
}

func (l *localAPI) Upsert(ctx context.Context, collectionID string, req *AddRequest) error {
	return l.store.Upsert(ctx, collectionID, req)
}

func (l *localAPI) Query(ctx context.Context, collectionID string, req *QueryRequest) (*QueryResponse, error) {
	return l.store.Query(ctx, collectionID, req)
}

func (l *localAPI) Get(ctx context.Context, collectionID string, req *GetRequest) (*GetResponse, error) {
	return l.store.Get(ctx, collectionID, req)
}

func (l *localAPI) Delete(ctx context.Context, collectionID string, req *DeleteRequest) error {
	return l.store.Delete(ctx, collectionID, req)
}

func (l *localAPI) Count(ctx context.Context, collectionID string) (int, error) {
	return l.store.Count(ctx, collectionID)
}

// Close is a no-op: the store is owned by the Client, which may also be
// serving it through App.
func (l *localAPI) Close() error {
	return nil
}
