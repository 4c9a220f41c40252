package rag_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/eventstream"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
	testutils "github.com/papercomputeco/kbase/pkg/utils/test"
	"github.com/papercomputeco/kbase/pkg/vector"
	"github.com/papercomputeco/kbase/pkg/worker"
)

const handbook = "Employees accrue twenty days of paid leave every calendar year. " +
	"Unused leave carries over to the following year up to a maximum of five days. " +
	"Requests must be submitted through the HR portal at least two weeks in advance."

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

func meta(filename, typ, createdAt string, index int) map[string]any {
	return map[string]any{
		vector.MetaFilename:   filename,
		vector.MetaType:       typ,
		vector.MetaCreatedAt:  createdAt,
		vector.MetaChunkIndex: index,
	}
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		dir       string
		embedder  *testutils.MockEmbedder
		driver    *testutils.MockVectorDriver
		chat      *testutils.MockLLMClient
		publisher *testutils.RecordingPublisher
		archiver  *testutils.MemoryArchiver
		svc       *rag.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		chat = testutils.NewMockLLMClient("You get twenty days of leave.")
		publisher = testutils.NewRecordingPublisher()
		archiver = testutils.NewMemoryArchiver()

		clock := func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
		var err error
		svc, err = rag.New(rag.Config{
			Embedder:   embedder,
			Driver:     driver,
			Chat:       chat,
			Processor:  documents.NewProcessor(documents.WithClock(clock)),
			Publisher:  publisher,
			Archiver:   archiver,
			Collection: "company_knowledge",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("requires an embedder and a driver", func() {
			_, err := rag.New(rag.Config{Driver: driver})
			Expect(err).To(MatchError("embedder is required"))

			_, err = rag.New(rag.Config{Embedder: embedder})
			Expect(err).To(MatchError("vector driver is required"))
		})
	})

	Describe("Ingest", func() {
		It("stores chunks, archives the original and removes the upload", func() {
			path := writeFile(dir, "upload-123.txt", handbook)

			res, err := svc.Ingest(ctx, path, "handbook.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Filename).To(Equal("handbook.txt"))
			Expect(res.Chunks).To(HaveLen(1))
			Expect(path).NotTo(BeAnExistingFile())

			stored, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
			Expect(stored[0].ID).To(Equal(res.Chunks[0].ID))
			Expect(stored[0].Embedding).To(Equal([]float32{0.1, 0.2, 0.3}))
			Expect(stored[0].Metadata).To(HaveKeyWithValue(vector.MetaFilename, "handbook.txt"))
			Expect(stored[0].Metadata).To(HaveKeyWithValue(vector.MetaSource, documents.SourceUpload))

			Expect(res.ArchiveKey).To(MatchRegexp(`^\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}/handbook\.txt$`))
			data, contentType, ok := archiver.Object(res.ArchiveKey)
			Expect(ok).To(BeTrue())
			Expect(string(data)).To(Equal(handbook))
			Expect(contentType).To(Equal("text/plain; charset=utf-8"))

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].EventType).To(Equal(eventstream.EventTypeDocumentIngested))
			Expect(events[0].Source.Service).To(Equal(rag.ServiceName))
			Expect(events[0].Source.Collection).To(Equal("company_knowledge"))
			Expect(events[0].Source.Origin).To(Equal(documents.SourceUpload))
			Expect(events[0].Document.Filename).To(Equal("handbook.txt"))
			Expect(events[0].Document.ChunkIDs).To(Equal([]string{res.Chunks[0].ID}))
			Expect(events[0].Document.ArchiveKey).To(Equal(res.ArchiveKey))
		})

		It("rejects unsupported files without archiving them", func() {
			path := writeFile(dir, "upload-1.png", "binary")

			_, err := svc.Ingest(ctx, path, "diagram.png")
			Expect(err).To(MatchError(documents.ErrUnsupportedType))
			Expect(archiver.Keys()).To(BeEmpty())
			Expect(publisher.Events()).To(BeEmpty())
			Expect(path).NotTo(BeAnExistingFile())
		})

		It("surfaces empty documents as ErrNoText", func() {
			path := writeFile(dir, "empty.txt", "   ")
			_, err := svc.Ingest(ctx, path, "empty.txt")
			Expect(err).To(MatchError(documents.ErrNoText))
		})

		It("fails when the store rejects the chunks", func() {
			driver.FailAdd = true
			path := writeFile(dir, "handbook.txt", handbook)

			_, err := svc.Ingest(ctx, path, "handbook.txt")
			Expect(err).To(MatchError(ContainSubstring("storing handbook.txt")))
			Expect(publisher.Events()).To(BeEmpty())
		})

		It("continues when archiving or publishing fails", func() {
			archiver.Fail = true
			publisher.Fail = true
			path := writeFile(dir, "handbook.txt", handbook)

			res, err := svc.Ingest(ctx, path, "handbook.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ArchiveKey).To(BeEmpty())
			Expect(driver.Count(ctx)).To(Equal(1))
		})

		It("keeps watched files and records their source", func() {
			path := writeFile(dir, "policy.txt", handbook)

			err := svc.HandleJob(ctx, worker.Job{Input: documents.Input{
				Path:   path,
				Source: documents.SourceWatch,
				Keep:   true,
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(BeAnExistingFile())

			stored, _ := driver.List(ctx)
			Expect(stored[0].Metadata).To(HaveKeyWithValue(vector.MetaFilename, "policy.txt"))
			Expect(stored[0].Metadata).To(HaveKeyWithValue(vector.MetaSource, documents.SourceWatch))
			Expect(publisher.Events()[0].Source.Origin).To(Equal(documents.SourceWatch))
		})
	})

	Describe("without an archiver", func() {
		It("skips archiving", func() {
			svc, err := rag.New(rag.Config{Embedder: embedder, Driver: driver})
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.Ingest(ctx, writeFile(dir, "handbook.txt", handbook), "handbook.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ArchiveKey).To(BeEmpty())
		})
	})

	Describe("Search", func() {
		It("requires a query", func() {
			_, err := svc.Search(ctx, "  ", 5)
			Expect(err).To(MatchError(rag.ErrEmptyQuery))
		})

		It("defaults the limit", func() {
			for i := range 8 {
				Expect(driver.Add(ctx, []vector.Document{{ID: string(rune('a' + i))}})).To(Succeed())
			}
			results, err := svc.Search(ctx, "leave", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(rag.DefaultSearchLimit))
		})
	})

	Describe("ListGrouped", func() {
		It("groups chunks by filename ordered by chunk index", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "h-1", Content: "second", Metadata: meta("handbook.pdf", "pdf", "2024-05-01T09:00:00.000Z", 1)},
				{ID: "s-0", Content: "sales", Metadata: meta("sales.xlsx", "xlsx", "2024-05-02T09:00:00.000Z", 0)},
				{ID: "h-0", Content: "first", Metadata: meta("handbook.pdf", "pdf", "2024-05-01T09:00:00.000Z", 0)},
			})).To(Succeed())

			groups, err := svc.ListGrouped(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(HaveLen(2))
			Expect(groups[0].Filename).To(Equal("handbook.pdf"))
			Expect(groups[0].Type).To(Equal("pdf"))
			Expect(groups[0].Chunks).To(Equal([]rag.ChunkSummary{
				{ID: "h-0", Content: "first", ChunkIndex: 0},
				{ID: "h-1", Content: "second", ChunkIndex: 1},
			}))
			Expect(groups[1].Filename).To(Equal("sales.xlsx"))
		})

		It("returns an empty list for an empty store", func() {
			groups, err := svc.ListGrouped(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).NotTo(BeNil())
			Expect(groups).To(BeEmpty())
		})
	})

	Describe("Delete and Reset", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{{ID: "a"}, {ID: "b"}})).To(Succeed())
		})

		It("deletes a chunk and publishes an event", func() {
			Expect(svc.Delete(ctx, "a")).To(Succeed())
			Expect(driver.Count(ctx)).To(Equal(1))

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].EventType).To(Equal(eventstream.EventTypeDocumentDeleted))
			Expect(events[0].Document.ChunkIDs).To(Equal([]string{"a"}))
		})

		It("ignores unknown ids", func() {
			Expect(svc.Delete(ctx, "missing")).To(Succeed())
			Expect(driver.Count(ctx)).To(Equal(2))
		})

		It("resets the store", func() {
			Expect(svc.Reset(ctx)).To(Succeed())
			Expect(svc.Count(ctx)).To(Equal(0))
			Expect(publisher.Events()[0].EventType).To(Equal(eventstream.EventTypeCollectionReset))
			Expect(publisher.Events()[0].Document.Chunks).To(Equal(2))
		})
	})

	Describe("Stats", func() {
		It("summarizes chunks by type and date", func() {
			docs := []vector.Document{
				{ID: "1", Metadata: meta("a.pdf", "pdf", "2024-05-01T09:00:00.000Z", 0)},
				{ID: "2", Metadata: meta("a.pdf", "pdf", "2024-05-01T09:00:00.000Z", 1)},
				{ID: "3", Metadata: meta("b.csv", "csv", "2024-05-03T10:00:00.000Z", 0)},
			}
			for i := range 10 {
				docs = append(docs, vector.Document{
					ID:       "t" + string(rune('0'+i)),
					Metadata: meta("c.txt", "txt", "2024-04-01T00:00:00.000Z", i),
				})
			}
			Expect(driver.Add(ctx, docs)).To(Succeed())

			stats, err := svc.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalDocuments).To(Equal(13))
			Expect(stats.FileTypes).To(Equal(map[string]int{"pdf": 2, "csv": 1, "txt": 10}))
			Expect(stats.UploadsByDate).To(Equal(map[string]int{"2024-05-01": 2, "2024-05-03": 1, "2024-04-01": 10}))
			Expect(stats.RecentUploads).To(HaveLen(rag.RecentUploadsLimit))
			Expect(stats.RecentUploads[0]).To(Equal(rag.Upload{Filename: "b.csv", Type: "csv", CreatedAt: "2024-05-03T10:00:00.000Z"}))
			Expect(stats.RecentUploads[1].Filename).To(Equal("a.pdf"))
		})
	})

	Describe("Chat", func() {
		It("validates the conversation", func() {
			_, err := svc.Chat(ctx, nil)
			Expect(err).To(MatchError(rag.ErrNoMessages))

			_, err = svc.Chat(ctx, []llm.Message{llm.NewTextMessage(llm.RoleAssistant, "hi")})
			Expect(err).To(MatchError(rag.ErrLastMessageNotUser))
			Expect(chat.Calls()).To(Equal(0))
		})

		It("grounds the answer on the closest chunks", func() {
			driver.Results = []vector.QueryResult{
				vector.NewQueryResult(vector.Document{ID: "1", Content: "Twenty days of leave.", Metadata: meta("handbook.pdf", "pdf", "", 2)}, 0.25),
				vector.NewQueryResult(vector.Document{ID: "2", Content: "Apply via HR.", Metadata: meta("policy.docx", "docx", "", 0)}, 0.5),
			}

			res, err := svc.Chat(ctx, []llm.Message{llm.NewTextMessage(llm.RoleUser, "How much leave do I get?")})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Message).To(Equal(llm.NewTextMessage(llm.RoleAssistant, "You get twenty days of leave.")))
			Expect(res.Context.ContextUsed).To(BeTrue())
			Expect(res.Context.DocumentsUsed).To(Equal([]rag.DocumentRef{
				{Filename: "handbook.pdf", Similarity: 0.75, ChunkIndex: 2},
				{Filename: "policy.docx", Similarity: 0.5, ChunkIndex: 0},
			}))

			sent := chat.LastRequest()
			Expect(sent).To(HaveLen(2))
			Expect(sent[0].Role).To(Equal(llm.RoleSystem))
			Expect(sent[0].Content).To(ContainSubstring("CONTEXT:\nDocument 1 (handbook.pdf):\nTwenty days of leave.\n\nDocument 2 (policy.docx):\nApply via HR.\n\nINSTRUCTIONS:"))
			Expect(sent[1].Content).To(Equal("How much leave do I get?"))
		})

		It("falls back when nothing is stored and keeps the last five messages", func() {
			var messages []llm.Message
			for i := range 7 {
				role := llm.RoleUser
				if i%2 == 1 {
					role = llm.RoleAssistant
				}
				messages = append(messages, llm.NewTextMessage(role, strings.Repeat("m", i+1)))
			}

			res, err := svc.Chat(ctx, messages)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Context.ContextUsed).To(BeFalse())
			Expect(res.Context.DocumentsUsed).To(BeEmpty())

			sent := chat.LastRequest()
			Expect(sent).To(HaveLen(6))
			Expect(sent[0].Content).To(ContainSubstring("No specific company documents found for this query."))
			Expect(sent[1].Content).To(Equal("mmm"))
			Expect(sent[5].Content).To(Equal("mmmmmmm"))
		})

		It("reports empty answers", func() {
			chat.Reply = ""
			_, err := svc.Chat(ctx, []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello")})
			Expect(err).To(MatchError(llm.ErrEmptyResponse))
		})

		It("propagates provider errors", func() {
			chat.Err = errors.New("upstream down")
			_, err := svc.Chat(ctx, []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello")})
			Expect(err).To(MatchError("upstream down"))
		})

		It("fails when chat is not configured", func() {
			svc, err := rag.New(rag.Config{Embedder: embedder, Driver: driver})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Chat(ctx, []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello")})
			Expect(err).To(MatchError(rag.ErrChatDisabled))
		})
	})
})

var _ = Describe("BuildContext", func() {
	It("uses the fallback text for no documents", func() {
		Expect(rag.BuildContext(nil)).To(Equal("No specific company documents found for this query."))
	})
})
