package chromadb

import "context"

// Collection is a handle on one collection, bound to the client's API.
type Collection struct {
	ID       string
	Name     string
	Metadata map[string]any

	api API
}

// Add inserts new records.
func (c *Collection) Add(ctx context.Context, req *AddRequest) error {
	return c.api.Add(ctx, c.ID, req)
}

// Upsert inserts or replaces records.
func (c *Collection) Upsert(ctx context.Context, req *AddRequest) error {
	return c.api.Upsert(ctx, c.ID, req)
}

// Query runs a nearest neighbour search.
func (c *Collection) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	return c.api.Query(ctx, c.ID, req)
}

// Get fetches records by id and/or filter.
func (c *Collection) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	return c.api.Get(ctx, c.ID, req)
}

// Delete removes records by id and/or filter.
func (c *Collection) Delete(ctx context.Context, req *DeleteRequest) error {
	return c.api.Delete(ctx, c.ID, req)
}

// Count returns the number of records.
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.api.Count(ctx, c.ID)
}
