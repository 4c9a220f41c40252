package services_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/chromadb"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/credentials"
	"github.com/papercomputeco/kbase/pkg/eventstream/nop"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
)

var _ = Describe("LoadConfig", func() {
	var configDir string

	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
		cmd.Flags().String("config-dir", configDir, "")
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		services.AddBackendFlags(cmd)
		return cmd
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	It("returns defaults without a config file", func() {
		cfg, err := services.LoadConfig(newCmd(), config.FlagListen)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Listen).To(Equal(":3000"))
		Expect(cfg.Chroma.Collection).To(Equal("company_knowledge"))
	})

	It("reads config.toml from the config dir", func() {
		cfger, err := config.NewConfiger(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("chat.provider", "ollama")).To(Succeed())

		cfg, err := services.LoadConfig(newCmd(), services.BackendFlags...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Chat.Provider).To(Equal("ollama"))
	})

	It("prefers environment variables over the file", func() {
		cfger, err := config.NewConfiger(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("server.listen", ":4000")).To(Succeed())
		GinkgoT().Setenv("KBASE_SERVER_LISTEN", ":5000")

		cfg, err := services.LoadConfig(newCmd(), config.FlagListen)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Listen).To(Equal(":5000"))
	})

	It("prefers flags over everything else", func() {
		GinkgoT().Setenv("KBASE_SERVER_LISTEN", ":5000")

		cmd := newCmd()
		Expect(cmd.Flags().Set("listen", ":6000")).To(Succeed())
		Expect(cmd.Flags().Set("embedding-provider", "ollama")).To(Succeed())

		cfg, err := services.LoadConfig(cmd, append([]string{config.FlagListen}, services.BackendFlags...)...)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Listen).To(Equal(":6000"))
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
	})
})

var _ = Describe("ChromaSettings", func() {
	It("maps the chroma section", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chroma.PersistDirectory = "/tmp/kbase-chroma"

		s, err := services.ChromaSettings(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.APIImpl).To(Equal(chromadb.APIImplREST))
		Expect(s.ServerHost).To(Equal("localhost"))
		Expect(s.ServerHTTPPort).To(Equal(8000))
		Expect(s.PersistDirectory).To(Equal("/tmp/kbase-chroma"))
	})

	It("persists under the home .kbase dir by default", func() {
		home := GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", home)

		s, err := services.ChromaSettings(config.NewDefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.PersistDirectory).To(Equal(filepath.Join(home, ".kbase", "chroma")))
	})

	It("rejects unknown api modes", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chroma.APIImpl = "grpc"
		_, err := services.ChromaSettings(cfg)
		Expect(err).To(MatchError(chromadb.ErrInvalidArgument))
	})

	It("rejects out of range ports", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chroma.PersistDirectory = "/tmp/kbase-chroma"
		cfg.Chroma.Port = 70000
		_, err := services.ChromaSettings(cfg)
		Expect(err).To(MatchError(chromadb.ErrInvalidArgument))
	})
})

var _ = Describe("NewPublisher", func() {
	It("defaults to a no-op publisher", func() {
		p, err := services.NewPublisher(config.NewDefaultConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("requires brokers for kafka", func() {
		cfg := config.NewDefaultConfig()
		cfg.Events.Provider = services.EventsKafka
		_, err := services.NewPublisher(cfg, nil)
		Expect(err).To(MatchError(ContainSubstring("kafka brokers are required")))
	})

	It("rejects unknown providers", func() {
		cfg := config.NewDefaultConfig()
		cfg.Events.Provider = "nats"
		_, err := services.NewPublisher(cfg, nil)
		Expect(err).To(MatchError(ContainSubstring("unsupported events provider")))
	})
})

var _ = Describe("NewArchiver", func() {
	It("returns nil when archiving is disabled", func() {
		a, err := services.NewArchiver(context.Background(), config.NewDefaultConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeNil())
	})

	It("rejects unknown providers", func() {
		cfg := config.NewDefaultConfig()
		cfg.Archive.Provider = "gcs"
		_, err := services.NewArchiver(context.Background(), cfg, nil)
		Expect(err).To(MatchError(ContainSubstring("unsupported archive provider")))
	})
})

var _ = Describe("NewChatClient", func() {
	It("builds the configured provider", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chat.Provider = "ollama"
		c, err := services.NewChatClient(cfg, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name()).To(Equal("ollama"))
	})

	It("rejects unknown providers", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chat.Provider = "bard"
		_, err := services.NewChatClient(cfg, "")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewLogger", func() {
	It("also writes JSON records to the log file", func() {
		cfg := config.NewDefaultConfig()
		cfg.Log.File = filepath.Join(GinkgoT().TempDir(), "logs", "kbase.log")

		l, closeLog, err := services.NewLogger(cfg, false)
		Expect(err).NotTo(HaveOccurred())
		l.Info("document ingested", "filename", "handbook.pdf")
		Expect(closeLog()).To(Succeed())

		data, err := os.ReadFile(cfg.Log.File)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"document ingested"`))
		Expect(string(data)).To(ContainSubstring(`"filename":"handbook.pdf"`))
	})
})

var _ = Describe("Build", func() {
	It("wires a service over an embedded vector database", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chroma.APIImpl = string(chromadb.APIImplEmbedded)
		cfg.Chroma.PersistDirectory = GinkgoT().TempDir()
		cfg.Embedding.Provider = "ollama"
		cfg.Embedding.Target = "http://127.0.0.1:1"

		stack, err := services.Build(context.Background(), cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(stack.Close)

		Expect(stack.Service).NotTo(BeNil())
		count, err := stack.Service.Count(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})

	It("fails on an unknown vector store", func() {
		cfg := config.NewDefaultConfig()
		cfg.VectorStore.Provider = "milvus"
		cfg.Chroma.PersistDirectory = GinkgoT().TempDir()
		_, err := services.Build(context.Background(), cfg, nil)
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})

	It("keeps serving searches with chat disabled", func() {
		cfg := config.NewDefaultConfig()
		cfg.Chroma.APIImpl = string(chromadb.APIImplEmbedded)
		cfg.Chroma.PersistDirectory = GinkgoT().TempDir()
		cfg.Chat.Provider = "bard"

		stack, err := services.Build(context.Background(), cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(stack.Close)

		_, err = stack.Service.Chat(context.Background(), []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "Who approves travel?"),
		})
		Expect(err).To(MatchError(rag.ErrChatDisabled))
	})

	It("reads provider keys from the credential store", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte("[[[broken"), 0o600)).To(Succeed())
		creds, err := credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.NewDefaultConfig()
		cfg.Chroma.PersistDirectory = GinkgoT().TempDir()
		_, err = services.Build(context.Background(), cfg, nil, services.WithCredentials(creds))
		Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
	})
})

var _ = Describe("Credentials", func() {
	It("opens the store in the config directory", func() {
		dir := GinkgoT().TempDir()
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("config-dir", dir, "")

		mgr, err := services.Credentials(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(dir, "credentials.toml")))
	})
})
