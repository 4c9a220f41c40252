package config

const (
	defaultServerListen = ":3000"
	defaultUploadDir    = "./uploads"
	defaultMaxFileSize  = 10 * 1024 * 1024

	defaultClientAPITarget = "http://localhost:3000"

	defaultChromaAPIImpl    = "rest"
	defaultChromaHost       = "localhost"
	defaultChromaPort       = 8000
	defaultChromaCollection = "company_knowledge"

	defaultVectorProvider = "chroma"

	defaultEmbeddingProvider   = "jina"
	defaultEmbeddingTarget     = "https://api.jina.ai"
	defaultEmbeddingModel      = "jina-embeddings-v2-base-en"
	defaultEmbeddingDimensions = 768

	defaultChatProvider = "openrouter"
	defaultChatTarget   = "https://openrouter.ai/api"
	defaultChatModel    = "meta-llama/llama-3.2-3b-instruct:free"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "kbase.documents"

	defaultArchiveProvider = "none"
	defaultArchiveEndpoint = "localhost:9000"
	defaultArchiveBucket   = "kbase-documents"

	defaultWatchWorkers = 2
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:      defaultServerListen,
			UploadDir:   defaultUploadDir,
			MaxFileSize: defaultMaxFileSize,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Chroma: ChromaConfig{
			APIImpl:    defaultChromaAPIImpl,
			Host:       defaultChromaHost,
			Port:       defaultChromaPort,
			Collection: defaultChromaCollection,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chat: ChatConfig{
			Provider: defaultChatProvider,
			Target:   defaultChatTarget,
			Model:    defaultChatModel,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Archive: ArchiveConfig{
			Provider: defaultArchiveProvider,
			Endpoint: defaultArchiveEndpoint,
			Bucket:   defaultArchiveBucket,
		},
		Watch: WatchConfig{
			Workers: defaultWatchWorkers,
		},
	}
}
