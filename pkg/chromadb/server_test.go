package chromadb_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/chromadb"
)

var _ = Describe("REST routes", func() {
	var app *fiber.App

	BeforeEach(func() {
		client, err := chromadb.NewClient(embeddedSettings(GinkgoT().TempDir()))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(client.Close)

		app, err = client.App()
		Expect(err).NotTo(HaveOccurred())
	})

	do := func(method, path, body string) (int, map[string]any) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		out := map[string]any{}
		_ = json.Unmarshal(raw, &out)
		return resp.StatusCode, out
	}

	const base = "/api/v2/tenants/default_tenant/databases/default_database/collections"

	It("answers heartbeat", func() {
		status, body := do("GET", "/api/v2/heartbeat", "")
		Expect(status).To(Equal(200))
		Expect(body).To(HaveKey("nanosecond heartbeat"))
	})

	It("returns 404 for unknown tenants", func() {
		status, body := do("GET", "/api/v2/tenants/acme/databases/default_database/collections", "")
		Expect(status).To(Equal(404))
		Expect(body).To(HaveKeyWithValue("error", "NotFoundError"))
	})

	It("returns 404 for unknown collections", func() {
		status, body := do("GET", base+"/nope", "")
		Expect(status).To(Equal(404))
		Expect(body).To(HaveKeyWithValue("error", "NotFoundError"))
	})

	It("returns 409 for duplicate collections", func() {
		status, _ := do("POST", base, `{"name":"handbook"}`)
		Expect(status).To(Equal(200))

		status, body := do("POST", base, `{"name":"handbook"}`)
		Expect(status).To(Equal(409))
		Expect(body).To(HaveKeyWithValue("error", "UniqueConstraintError"))

		status, body = do("POST", base, `{"name":"handbook","get_or_create":true}`)
		Expect(status).To(Equal(200))
		Expect(body).To(HaveKeyWithValue("name", "handbook"))
	})

	It("returns 400 for malformed bodies and invalid names", func() {
		status, body := do("POST", base, `{"name":`)
		Expect(status).To(Equal(400))
		Expect(body).To(HaveKeyWithValue("error", "InvalidArgumentError"))

		status, _ = do("POST", base, `{"name":"x"}`)
		Expect(status).To(Equal(400))
	})

	It("adds with 201 and reports dimension errors as 400", func() {
		status, col := do("POST", base, `{"name":"handbook"}`)
		Expect(status).To(Equal(200))
		id := col["id"].(string)

		status, _ = do("POST", base+"/"+id+"/add", `{"ids":["a"],"embeddings":[[1,2,3]]}`)
		Expect(status).To(Equal(201))

		status, body := do("POST", base+"/"+id+"/add", `{"ids":["b"],"embeddings":[[1,2]]}`)
		Expect(status).To(Equal(400))
		Expect(body).To(HaveKeyWithValue("error", "InvalidDimensionException"))
	})
})
