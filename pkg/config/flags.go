package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --chroma-port on "kbase serve" and "kbase serve db") cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "chroma-port").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "chroma.port").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagUploadDir      = "upload-dir"
	FlagAPITarget      = "api-target"
	FlagChromaAPIImpl  = "chroma-api-impl"
	FlagChromaHost     = "chroma-host"
	FlagChromaPort     = "chroma-port"
	FlagChromaPersist  = "chroma-persist-dir"
	FlagCollection     = "collection"
	FlagVectorProvider = "vector-store-provider"
	FlagVectorTarget   = "vector-store-target"
	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagEmbeddingDims  = "embedding-dimensions"
	FlagChatProvider   = "chat-provider"
	FlagChatTarget     = "chat-target"
	FlagChatModel      = "chat-model"
	FlagEventsProvider = "events-provider"
	FlagEventsBrokers  = "events-brokers"
	FlagArchiveProv    = "archive-provider"
	FlagWatchDir       = "watch"
	FlagWatchWorkers   = "watch-workers"
)

// Flags is the shared registry used by every kbase command.
var Flags = FlagSet{
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagUploadDir:      {Name: "upload-dir", ViperKey: "server.upload_dir", Description: "Directory for temporary uploads"},
	FlagAPITarget:      {Name: "api-target", ViperKey: "client.api_target", Description: "kbase API server URL"},
	FlagChromaAPIImpl:  {Name: "chroma-api-impl", ViperKey: "chroma.api_impl", Description: "Vector database client mode (rest, embedded)"},
	FlagChromaHost:     {Name: "chroma-host", ViperKey: "chroma.host", Description: "Vector database host"},
	FlagChromaPort:     {Name: "chroma-port", Shorthand: "p", ViperKey: "chroma.port", Description: "Vector database HTTP port"},
	FlagChromaPersist:  {Name: "chroma-persist-dir", ViperKey: "chroma.persist_directory", Description: "Vector database persistence directory"},
	FlagCollection:     {Name: "collection", ViperKey: "chroma.collection", Description: "Vector collection name"},
	FlagVectorProvider: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (chroma, qdrant, pgvector)"},
	FlagVectorTarget:   {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target for qdrant (host:port) or pgvector (postgres URL)"},
	FlagEmbeddingProv:  {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (jina, openai, ollama)"},
	FlagEmbeddingTgt:   {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel: {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model"},
	FlagEmbeddingDims:  {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensions"},
	FlagChatProvider:   {Name: "chat-provider", ViperKey: "chat.provider", Description: "Chat provider (openrouter, openai, ollama)"},
	FlagChatTarget:     {Name: "chat-target", ViperKey: "chat.target", Description: "Chat provider URL"},
	FlagChatModel:      {Name: "chat-model", ViperKey: "chat.model", Description: "Chat model"},
	FlagEventsProvider: {Name: "events-provider", ViperKey: "events.provider", Description: "Document event stream (none, kafka)"},
	FlagEventsBrokers:  {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagArchiveProv:    {Name: "archive-provider", ViperKey: "archive.provider", Description: "Archive for uploaded originals (none, s3)"},
	FlagWatchDir:       {Name: "watch", Shorthand: "w", ViperKey: "watch.dir", Description: "Directory to watch for new documents"},
	FlagWatchWorkers:   {Name: "watch-workers", ViperKey: "watch.workers", Description: "Number of ingest workers for watched files"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// AddViperStringFlags registers string flags whose values are only read back
// through viper once BindRegisteredFlags has run.
func AddViperStringFlags(cmd *cobra.Command, fs FlagSet, registryKeys ...string) {
	for _, key := range registryKeys {
		AddStringFlag(cmd, fs, key, new(string))
	}
}
