package chromadb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/kbase/pkg/chromadb/store"
	"github.com/papercomputeco/kbase/pkg/logger"
)

const (
	// DefaultMaxRetries is the number of attempts made to reach a server
	// while bootstrapping a collection.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial delay between attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 5 * time.Second
)

// Client is a handle on a vector database, either in-process or remote.
type Client struct {
	settings   Settings
	logger     *slog.Logger
	httpClient *http.Client

	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration

	api API

	mu    sync.Mutex
	store *store.Store

	appOnce sync.Once
	app     *fiber.App
	appErr  error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient sets the HTTP client used by the rest api.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithRetry configures the exponential backoff used while bootstrapping
// collections against a server that may still be starting.
func WithRetry(maxRetries int, delay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
		c.maxRetryDelay = maxDelay
	}
}

// NewClient validates s and builds a client for its api mode. Embedded
// clients open (creating if needed) the database under s.PersistDirectory.
func NewClient(s Settings, opts ...Option) (*Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		settings:      s,
		logger:        logger.Nop(),
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		maxRetryDelay: DefaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}

	switch s.APIImpl {
	case APIImplEmbedded:
		st, err := c.openStore()
		if err != nil {
			return nil, err
		}
		c.api = newLocalAPI(st)
	case APIImplREST:
		c.api = newRESTAPI(s.URL(), c.httpClient)
	}

	c.logger.Debug("vector database client created",
		"api_impl", s.APIImpl,
		"url", s.URL(),
		"persist_directory", s.PersistDirectory,
	)

	return c, nil
}

// Settings returns the settings the client was built with.
func (c *Client) Settings() Settings {
	return c.settings
}

// API returns the client's underlying implementation.
func (c *Client) API() API {
	return c.api
}

// App returns the servable application over the client's local store.
// The store is opened on the first call; every call returns the same
// application and error. In embedded mode the application and the client
// share one store.
func (c *Client) App() (*fiber.App, error) {
	c.appOnce.Do(func() {
		st, err := c.openStore()
		if err != nil {
			c.appErr = err
			return
		}
		c.app = newApp(newLocalAPI(st), c.logger)
	})
	return c.app, c.appErr
}

// Handler returns App adapted to net/http.
func (c *Client) Handler() (http.Handler, error) {
	app, err := c.App()
	if err != nil {
		return nil, err
	}
	return adaptor.FiberApp(app), nil
}

// ListenAndServe serves App on the settings' host and port until ctx is
// done, then shuts the server down.
func (c *Client) ListenAndServe(ctx context.Context) error {
	app, err := c.App()
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		c.logger.Info("starting vector database server",
			"listen", c.settings.Addr(),
			"persist_directory", c.settings.PersistDirectory,
		)
		errChan <- app.Listen(c.settings.Addr())
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down vector database server")
		return app.Shutdown()
	}
}

// Close releases the client's store, if one was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.api != nil {
		errs = append(errs, c.api.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	return errors.Join(errs...)
}

func (c *Client) openStore() (*store.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}

	dir := c.settings.PersistDirectory
	if dir == "" {
		return nil, fmt.Errorf("%w: persist directory is required to open a store", ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}

	st, err := store.Open(filepath.Join(dir, DatabaseFile), c.logger)
	if err != nil {
		return nil, err
	}
	c.store = st
	return st, nil
}

// Heartbeat returns the server clock in nanoseconds.
func (c *Client) Heartbeat(ctx context.Context) (int64, error) {
	return c.api.Heartbeat(ctx)
}

// Version returns the server version.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.api.Version(ctx)
}

// ListCollections returns every collection.
func (c *Client) ListCollections(ctx context.Context) ([]*Collection, error) {
	models, err := c.api.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	cols := make([]*Collection, 0, len(models))
	for _, m := range models {
		cols = append(cols, c.wrap(m))
	}
	return cols, nil
}

// GetCollection resolves a collection by name or id.
func (c *Client) GetCollection(ctx context.Context, nameOrID string) (*Collection, error) {
	m, err := c.api.GetCollection(ctx, nameOrID)
	if err != nil {
		return nil, err
	}
	return c.wrap(m), nil
}

// CreateCollection creates a collection, failing with ErrCollectionExists
// when the name is taken.
func (c *Client) CreateCollection(ctx context.Context, name string, metadata map[string]any) (*Collection, error) {
	m, err := c.api.CreateCollection(ctx, &CreateCollectionRequest{Name: name, Metadata: metadata})
	if err != nil {
		return nil, err
	}
	return c.wrap(m), nil
}

// GetOrCreateCollection returns the named collection, creating it if
// needed. Transport failures are retried with exponential backoff so a
// client can start before its server.
func (c *Client) GetOrCreateCollection(ctx context.Context, name string, metadata map[string]any) (*Collection, error) {
	var m *CollectionModel
	err := c.retry(ctx, "getting or creating collection "+name, func() error {
		var err error
		m, err = c.api.CreateCollection(ctx, &CreateCollectionRequest{
			Name:        name,
			Metadata:    metadata,
			GetOrCreate: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.wrap(m), nil
}

// DeleteCollection drops a collection and its records.
func (c *Client) DeleteCollection(ctx context.Context, nameOrID string) error {
	return c.api.DeleteCollection(ctx, nameOrID)
}

func (c *Client) wrap(m *CollectionModel) *Collection {
	return &Collection{
		ID:       m.ID,
		Name:     m.Name,
		Metadata: m.Metadata,
		api:      c.api,
	}
}

// retry runs fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	delay := c.retryDelay
	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		if attempt == c.maxRetries {
			break
		}

		c.logger.Warn("vector database not ready, retrying",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.maxRetryDelay {
			delay = c.maxRetryDelay
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, c.maxRetries, err)
}

// transient reports whether err may clear up on its own: anything that is
// not a definitive answer from the database.
func transient(err error) bool {
	for _, definitive := range []error{
		ErrCollectionNotFound,
		ErrCollectionExists,
		ErrDuplicateID,
		ErrDimensionMismatch,
		ErrInvalidArgument,
	} {
		if errors.Is(err, definitive) {
			return false
		}
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
