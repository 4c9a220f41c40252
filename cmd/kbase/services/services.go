// Package services assembles kbase components from resolved configuration.
// Every command that needs the RAG backend, a vector database client or a
// logger goes through here so flags, environment and config.toml are
// interpreted the same way everywhere.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/pkg/archive"
	"github.com/papercomputeco/kbase/pkg/archive/objectstore"
	"github.com/papercomputeco/kbase/pkg/chromadb"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/credentials"
	"github.com/papercomputeco/kbase/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/kbase/pkg/embeddings/utils"
	"github.com/papercomputeco/kbase/pkg/eventstream"
	"github.com/papercomputeco/kbase/pkg/eventstream/kafka"
	"github.com/papercomputeco/kbase/pkg/eventstream/nop"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/llm/provider"
	"github.com/papercomputeco/kbase/pkg/logger"
	"github.com/papercomputeco/kbase/pkg/rag"
	"github.com/papercomputeco/kbase/pkg/vector"
	vectorutils "github.com/papercomputeco/kbase/pkg/vector/utils"
)

// Provider names accepted by the events and archive config sections.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"

	ArchiveNone = "none"
	ArchiveS3   = "s3"
)

// Environment variables holding the archive credentials.
const (
	EnvArchiveAccessKey = "KBASE_ARCHIVE_ACCESS_KEY"
	EnvArchiveSecretKey = "KBASE_ARCHIVE_SECRET_KEY"
)

// chromaSubdir is where a vector database persists under ~/.kbase when no
// persist directory is configured.
const chromaSubdir = "chroma"

// BackendFlags select the RAG backends. Every command that builds the RAG
// service registers them with AddBackendFlags.
var BackendFlags = []string{
	config.FlagChromaAPIImpl,
	config.FlagVectorProvider,
	config.FlagVectorTarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagChatProvider,
	config.FlagChatTarget,
	config.FlagChatModel,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagArchiveProv,
}

// AddBackendFlags registers BackendFlags on cmd. Their values are only read
// back through LoadConfig.
func AddBackendFlags(cmd *cobra.Command) {
	config.AddViperStringFlags(cmd, config.Flags, BackendFlags...)
}

// LoadConfig resolves the configuration for cmd: flags named by flagKeys
// override KBASE_ environment variables, which override config.toml in the
// directory given by the persistent --config-dir flag.
func LoadConfig(cmd *cobra.Command, flagKeys ...string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return config.FromViper(v)
}

// NewLogger builds the command logger. Terminal output is colorized unless
// log.json is set; when log.file is set every record is also appended to
// that file as JSON. The returned func closes the file.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(!cfg.Log.JSON),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithWriter(os.Stderr),
	)

	if cfg.Log.File == "" {
		return console, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}

// ChromaSettings converts the chroma config section into client settings.
// A missing persist directory falls back to ~/.kbase/chroma.
func ChromaSettings(cfg *config.Config) (chromadb.Settings, error) {
	impl, err := chromadb.ParseAPIImpl(cfg.Chroma.APIImpl)
	if err != nil {
		return chromadb.Settings{}, err
	}

	s := chromadb.Settings{
		APIImpl:          impl,
		ServerHost:       cfg.Chroma.Host,
		ServerHTTPPort:   int(cfg.Chroma.Port), //nolint:gosec // validated below
		PersistDirectory: cfg.Chroma.PersistDirectory,
	}

	if s.PersistDirectory == "" {
		home, err := dotdir.NewManager().Home()
		if err != nil {
			return chromadb.Settings{}, err
		}
		s.PersistDirectory = filepath.Join(home, chromaSubdir)
	}

	if err := s.Validate(); err != nil {
		return chromadb.Settings{}, err
	}
	return s, nil
}

// Credentials opens the key store in the directory given by the persistent
// --config-dir flag.
func Credentials(cmd *cobra.Command) (*credentials.Manager, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	return mgr, nil
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	creds *credentials.Manager
}

// WithCredentials makes Build prefer keys stored in creds over the
// provider environment variables.
func WithCredentials(creds *credentials.Manager) Option {
	return func(o *buildOptions) {
		o.creds = creds
	}
}

func (o *buildOptions) storedKey(provider string) (string, error) {
	if o.creds == nil {
		return "", nil
	}
	return o.creds.GetKey(provider)
}

// Stack is a fully wired RAG service together with the backends it owns.
type Stack struct {
	Service *rag.Service

	driver    vector.Driver
	publisher eventstream.Publisher
	archiver  archive.Archiver
}

// Build wires a rag.Service from cfg. When the chat section cannot produce
// a client the service still ingests and searches, and chat requests fail
// with rag.ErrChatDisabled.
func Build(ctx context.Context, cfg *config.Config, l *slog.Logger, opts ...Option) (*Stack, error) {
	if l == nil {
		l = logger.Nop()
	}

	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}

	embedKey, err := o.storedKey(cfg.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	chatKey, err := o.storedKey(cfg.Chat.Provider)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       embedKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	chroma, err := ChromaSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("vector database settings: %w", err)
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType:   cfg.VectorStore.Provider,
		TargetURL:      cfg.VectorStore.Target,
		Chroma:         chroma,
		CollectionName: cfg.Chroma.Collection,
		Dimensions:     cfg.Embedding.Dimensions,
		Logger:         l,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	st := &Stack{driver: driver}

	st.publisher, err = NewPublisher(cfg, l)
	if err != nil {
		st.Close()
		return nil, err
	}

	st.archiver, err = NewArchiver(ctx, cfg, l)
	if err != nil {
		st.Close()
		return nil, err
	}

	chat, err := NewChatClient(cfg, chatKey)
	if err != nil {
		l.Warn("chat disabled", "error", err)
	}

	svc, err := rag.New(rag.Config{
		Embedder:   embedder,
		Driver:     driver,
		Chat:       chat,
		Publisher:  st.publisher,
		Archiver:   st.archiver,
		Collection: cfg.Chroma.Collection,
		Logger:     l,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	st.Service = svc

	l.Debug("rag service ready",
		"vector_store", cfg.VectorStore.Provider,
		"embedding_provider", cfg.Embedding.Provider,
		"chat_provider", cfg.Chat.Provider,
		"events", cfg.Events.Provider,
		"archive", cfg.Archive.Provider,
	)
	return st, nil
}

// Close releases every backend the stack opened.
func (s *Stack) Close() error {
	var errs []error
	if s.archiver != nil {
		errs = append(errs, s.archiver.Close())
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.driver != nil {
		errs = append(errs, s.driver.Close())
	}
	return errors.Join(errs...)
}

// NewChatClient builds the chat completion client from the chat section.
// An empty apiKey falls back to the provider environment variable.
func NewChatClient(cfg *config.Config, apiKey string) (llm.Client, error) {
	return provider.New(provider.Options{
		ProviderType: cfg.Chat.Provider,
		BaseURL:      cfg.Chat.Target,
		Model:        cfg.Chat.Model,
		APIKey:       apiKey,
	})
}

// NewPublisher builds the document event publisher from the events section.
func NewPublisher(cfg *config.Config, l *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case EventsNone, "":
		return nop.NewPublisher(), nil
	case EventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: kafka.ParseBrokers(cfg.Events.Brokers),
			Topic:   cfg.Events.Topic,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %q (supported: none, kafka)", cfg.Events.Provider)
	}
}

// NewArchiver builds the archive for uploaded originals. It returns nil
// when archiving is disabled.
func NewArchiver(ctx context.Context, cfg *config.Config, l *slog.Logger) (archive.Archiver, error) {
	switch cfg.Archive.Provider {
	case ArchiveNone, "":
		return nil, nil
	case ArchiveS3:
		a, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: os.Getenv(EnvArchiveAccessKey),
			SecretKey: os.Getenv(EnvArchiveSecretKey),
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("creating archive: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported archive provider: %q (supported: none, s3)", cfg.Archive.Provider)
	}
}
