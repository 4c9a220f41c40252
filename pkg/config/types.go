package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent kbase configuration stored as config.toml
// in the .kbase/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Client      ClientConfig      `toml:"client"`
	Chroma      ChromaConfig      `toml:"chroma"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chat        ChatConfig        `toml:"chat"`
	Events      EventsConfig      `toml:"events"`
	Archive     ArchiveConfig     `toml:"archive"`
	Watch       WatchConfig       `toml:"watch"`
	Log         LogConfig         `toml:"log"`
}

// ServerConfig holds RAG API server settings.
type ServerConfig struct {
	Listen      string `toml:"listen,omitempty"`
	UploadDir   string `toml:"upload_dir,omitempty"`
	MaxFileSize uint   `toml:"max_file_size,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// kbase API server (kbase search, kbase chat). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// ChromaConfig describes the vector database server. The same section is
// read by "kbase serve db" to bind the server and by the RAG backend to
// reach it.
type ChromaConfig struct {
	APIImpl          string `toml:"api_impl,omitempty"`
	Host             string `toml:"host,omitempty"`
	Port             uint   `toml:"port,omitempty"`
	PersistDirectory string `toml:"persist_directory,omitempty"`
	Collection       string `toml:"collection,omitempty"`
}

// VectorStoreConfig selects the vector store backend used by the RAG service.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChatConfig holds chat completion provider settings.
type ChatConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EventsConfig configures the document event stream.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// ArchiveConfig configures where uploaded originals are archived. Access
// and secret keys are read from KBASE_ARCHIVE_ACCESS_KEY and
// KBASE_ARCHIVE_SECRET_KEY so they never land in config.toml.
type ArchiveConfig struct {
	Provider string `toml:"provider,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`
	Bucket   string `toml:"bucket,omitempty"`
	Region   string `toml:"region,omitempty"`
	UseSSL   bool   `toml:"use_ssl,omitempty"`
}

// WatchConfig configures the inbox watcher used by "kbase ingest --watch".
type WatchConfig struct {
	Dir     string `toml:"dir,omitempty"`
	Workers uint   `toml:"workers,omitempty"`
}

// LogConfig holds logging settings for long-running services.
type LogConfig struct {
	JSON bool   `toml:"json,omitempty"`
	File string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":     stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.upload_dir": stringKey(func(c *Config) *string { return &c.Server.UploadDir }),
	"server.max_file_size": uintKey("server.max_file_size",
		func(c *Config) *uint { return &c.Server.MaxFileSize }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"chroma.api_impl":          stringKey(func(c *Config) *string { return &c.Chroma.APIImpl }),
	"chroma.host":              stringKey(func(c *Config) *string { return &c.Chroma.Host }),
	"chroma.port":              uintKey("chroma.port", func(c *Config) *uint { return &c.Chroma.Port }),
	"chroma.persist_directory": stringKey(func(c *Config) *string { return &c.Chroma.PersistDirectory }),
	"chroma.collection":        stringKey(func(c *Config) *string { return &c.Chroma.Collection }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions",
		func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"chat.provider": stringKey(func(c *Config) *string { return &c.Chat.Provider }),
	"chat.target":   stringKey(func(c *Config) *string { return &c.Chat.Target }),
	"chat.model":    stringKey(func(c *Config) *string { return &c.Chat.Model }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"archive.provider": stringKey(func(c *Config) *string { return &c.Archive.Provider }),
	"archive.endpoint": stringKey(func(c *Config) *string { return &c.Archive.Endpoint }),
	"archive.bucket":   stringKey(func(c *Config) *string { return &c.Archive.Bucket }),
	"archive.region":   stringKey(func(c *Config) *string { return &c.Archive.Region }),
	"archive.use_ssl":  boolKey("archive.use_ssl", func(c *Config) *bool { return &c.Archive.UseSSL }),

	"watch.dir":     stringKey(func(c *Config) *string { return &c.Watch.Dir }),
	"watch.workers": uintKey("watch.workers", func(c *Config) *uint { return &c.Watch.Workers }),

	"log.json": boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.file": stringKey(func(c *Config) *string { return &c.Log.File }),
}

// orderedKeys mirrors the TOML section layout for stable listing.
var orderedKeys = []string{
	"server.listen",
	"server.upload_dir",
	"server.max_file_size",
	"client.api_target",
	"chroma.api_impl",
	"chroma.host",
	"chroma.port",
	"chroma.persist_directory",
	"chroma.collection",
	"vector_store.provider",
	"vector_store.target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"chat.provider",
	"chat.target",
	"chat.model",
	"events.provider",
	"events.brokers",
	"events.topic",
	"archive.provider",
	"archive.endpoint",
	"archive.bucket",
	"archive.region",
	"archive.use_ssl",
	"watch.dir",
	"watch.workers",
	"log.json",
	"log.file",
}
