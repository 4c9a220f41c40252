package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("reads an existing file", func() {
			data := "version = 0\n\n[providers.jina]\napi_key = \"jina_test\"\n"
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("jina", credentials.ProviderCredential{APIKey: "jina_test"}))
		})

		It("fails on malformed toml", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("[[[not toml"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
		})
	})

	Describe("SetKey and RemoveKey", func() {
		It("stores keys with owner-only permissions", func() {
			Expect(mgr.SetKey("openrouter", "sk-or-1")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			key, err := mgr.GetKey("openrouter")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-or-1"))
		})

		It("overwrites an existing key", func() {
			Expect(mgr.SetKey("openai", "old")).To(Succeed())
			Expect(mgr.SetKey("openai", "new")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("new"))
		})

		It("removes a key and leaves the others", func() {
			Expect(mgr.SetKey("openai", "a")).To(Succeed())
			Expect(mgr.SetKey("jina", "b")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"jina"}))
		})

		It("does not fail removing an unknown provider", func() {
			Expect(mgr.RemoveKey("jina")).To(Succeed())
		})
	})

	Describe("ListProviders", func() {
		It("returns providers sorted", func() {
			Expect(mgr.SetKey("openrouter", "x")).To(Succeed())
			Expect(mgr.SetKey("jina", "y")).To(Succeed())
			Expect(mgr.SetKey("openai", "z")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"jina", "openai", "openrouter"}))
		})
	})

	Describe("APIKey", func() {
		It("prefers the stored key over the environment", func() {
			GinkgoT().Setenv("JINA_API_KEY", "from-env")
			Expect(mgr.SetKey("jina", "stored")).To(Succeed())

			key, err := mgr.APIKey("jina")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("stored"))
		})

		It("falls back to the provider environment variable", func() {
			GinkgoT().Setenv("OPENROUTER_API_KEY", "from-env")

			key, err := mgr.APIKey("openrouter")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("from-env"))
		})

		It("is empty for providers without a key", func() {
			key, err := mgr.APIKey("ollama")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})
})

var _ = Describe("providers", func() {
	It("maps providers to environment variables", func() {
		Expect(credentials.EnvVarForProvider("jina")).To(Equal("JINA_API_KEY"))
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
		Expect(credentials.EnvVarForProvider("openrouter")).To(Equal("OPENROUTER_API_KEY"))
		Expect(credentials.EnvVarForProvider("ollama")).To(BeEmpty())
	})

	It("reports supported providers", func() {
		Expect(credentials.IsSupportedProvider("jina")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
	})
})
