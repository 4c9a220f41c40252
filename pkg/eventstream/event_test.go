package eventstream_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals DocumentEvent with expected top-level keys", func() {
		event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentIngested,
			eventstream.EventSource{Service: "kbase", Collection: "company_knowledge", Origin: "upload"},
			eventstream.DocumentMeta{
				Filename: "handbook.pdf",
				Type:     "pdf",
				ChunkIDs: []string{"a-chunk-0", "a-chunk-1"},
				Chunks:   2,
			},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("document"))
	})

	It("fills in identity and version", func() {
		event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentDeleted, eventstream.EventSource{}, eventstream.DocumentMeta{})
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.EmittedAt.IsZero()).To(BeFalse())
	})

	DescribeTable("Key",
		func(doc eventstream.DocumentMeta, want string) {
			event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentDeleted, eventstream.EventSource{}, doc)
			Expect(event.Key()).To(Equal(want))
		},
		Entry("uses the filename", eventstream.DocumentMeta{Filename: "a.txt", ChunkIDs: []string{"x"}}, "a.txt"),
		Entry("falls back to the first chunk id", eventstream.DocumentMeta{ChunkIDs: []string{"x", "y"}}, "x"),
		Entry("falls back to the event type", eventstream.DocumentMeta{}, eventstream.EventTypeDocumentDeleted),
	)

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeDocumentIngested).To(Equal("kbase.document.ingested"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil document event"))
	})
})
