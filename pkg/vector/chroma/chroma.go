// Package chroma provides a vector driver backed by the chromadb client,
// either against a running server or an embedded store.
package chroma

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/kbase/pkg/chromadb"
	"github.com/papercomputeco/kbase/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for knowledge base chunks.
	DefaultCollectionName = "company_knowledge"

	collectionDescription = "Company knowledge base documents"
)

// Driver implements vector.Driver over a chromadb collection.
type Driver struct {
	client         *chromadb.Client
	collectionName string
	logger         *slog.Logger

	mu         sync.RWMutex
	collection *chromadb.Collection
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// Settings selects the client mode and where the database lives.
	Settings chromadb.Settings

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries is the number of attempts made to reach the server on
	// startup. Zero uses chromadb.DefaultMaxRetries.
	MaxRetries int

	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff.
	MaxRetryDelay time.Duration
}

// NewDriver connects to the database and gets or creates the collection.
// The collection uses cosine distance so similarity is 1 - distance.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = chromadb.DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = chromadb.DefaultRetryDelay
	}
	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = chromadb.DefaultMaxRetryDelay
	}

	client, err := chromadb.NewClient(c.Settings,
		chromadb.WithLogger(logger),
		chromadb.WithRetry(c.MaxRetries, c.RetryDelay, c.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chroma client: %w", err)
	}

	d := &Driver{
		client:         client,
		collectionName: c.CollectionName,
		logger:         logger,
	}

	if err := d.bootstrap(context.Background()); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to Chroma",
		"api_impl", c.Settings.APIImpl,
		"url", c.Settings.URL(),
		"collection", c.CollectionName,
		"collection_id", d.collection.ID,
	)

	return d, nil
}

func (d *Driver) bootstrap(ctx context.Context) error {
	col, err := d.client.GetOrCreateCollection(ctx, d.collectionName, map[string]any{
		chromadb.SpaceKey: chromadb.SpaceCosine,
		"description":     collectionDescription,
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("getting or creating collection %q: %w", d.collectionName, err)
	}

	d.mu.Lock()
	d.collection = col
	d.mu.Unlock()
	return nil
}

func (d *Driver) current() *chromadb.Collection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.collection
}

// Add stores documents with their embeddings, replacing existing IDs.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := &chromadb.AddRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Documents:  make([]string, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Documents[i] = doc.Content
		req.Metadatas[i] = doc.Metadata
	}

	if err := d.current().Upsert(ctx, req); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("added documents to chroma",
		"count", len(docs),
	)

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	resp, err := d.current().Query(ctx, &chromadb.QueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include: []chromadb.Include{
			chromadb.IncludeDocuments,
			chromadb.IncludeMetadatas,
			chromadb.IncludeDistances,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}

	// Process first group (we only query with one embedding)
	if len(resp.IDs) == 0 || len(resp.IDs[0]) == 0 {
		return []vector.QueryResult{}, nil
	}

	ids := resp.IDs[0]
	results := make([]vector.QueryResult, 0, len(ids))
	for i, id := range ids {
		doc := vector.Document{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			doc.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			doc.Metadata = resp.Metadatas[0][i]
		}

		var distance float32
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			distance = resp.Distances[0][i]
		}
		results = append(results, vector.NewQueryResult(doc, distance))
	}

	d.logger.Debug("queried chroma",
		"results", len(results),
	)

	return results, nil
}

// List returns every document in the collection.
func (d *Driver) List(ctx context.Context) ([]vector.Document, error) {
	resp, err := d.current().Get(ctx, &chromadb.GetRequest{
		Include: []chromadb.Include{chromadb.IncludeDocuments, chromadb.IncludeMetadatas},
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	docs := make([]vector.Document, len(resp.IDs))
	for i, id := range resp.IDs {
		docs[i] = vector.Document{ID: id}
		if i < len(resp.Documents) {
			docs[i].Content = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			docs[i].Metadata = resp.Metadatas[i]
		}
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.current().Delete(ctx, &chromadb.DeleteRequest{IDs: ids}); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from chroma",
		"count", len(ids),
	)

	return nil
}

// Count returns the number of documents in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.current().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Reset drops and recreates the collection.
func (d *Driver) Reset(ctx context.Context) error {
	if err := d.client.DeleteCollection(ctx, d.collectionName); err != nil {
		return fmt.Errorf("deleting collection %q: %w", d.collectionName, err)
	}
	if err := d.bootstrap(ctx); err != nil {
		return err
	}

	d.logger.Info("reset chroma collection",
		"collection", d.collectionName,
	)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.client.Close()
}
