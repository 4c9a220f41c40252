package documents_test

import (
	"archive/zip"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/papercomputeco/kbase/pkg/documents"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Leave requests</w:t></w:r><w:r><w:t xml:space="preserve"> go through Aqua.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeDocx(path, body string) {
	f, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	Expect(err).NotTo(HaveOccurred())
	_, err = w.Write([]byte(body))
	Expect(err).NotTo(HaveOccurred())
	Expect(zw.Close()).To(Succeed())
}

var _ = Describe("Extract", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("reads plain text", func() {
		path := filepath.Join(dir, "upload-1")
		Expect(os.WriteFile(path, []byte("Office hours are 8am to 5pm."), 0o600)).To(Succeed())

		text, err := documents.Extract(path, "hours.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Office hours are 8am to 5pm."))
	})

	It("reads docx paragraphs and runs", func() {
		path := filepath.Join(dir, "policy.docx")
		writeDocx(path, documentXML)

		text, err := documents.Extract(path, "policy.docx")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("Leave requests go through Aqua.\n\n"))
		Expect(text).To(ContainSubstring("Second\tparagraph."))
	})

	It("fails for a docx without a document body", func() {
		path := filepath.Join(dir, "empty.docx")
		f, err := os.Create(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(zip.NewWriter(f).Close()).To(Succeed())
		Expect(f.Close()).To(Succeed())

		_, err = documents.Extract(path, "empty.docx")
		Expect(err).To(MatchError(ContainSubstring("word/document.xml not found")))
	})

	It("renders every workbook sheet as csv", func() {
		path := filepath.Join(dir, "leave.xlsx")
		wb := excelize.NewFile()
		Expect(wb.SetCellValue("Sheet1", "A1", "name")).To(Succeed())
		Expect(wb.SetCellValue("Sheet1", "B1", "days")).To(Succeed())
		Expect(wb.SetCellValue("Sheet1", "A2", "vacation")).To(Succeed())
		Expect(wb.SetCellValue("Sheet1", "B2", 20)).To(Succeed())
		_, err := wb.NewSheet("Holidays")
		Expect(err).NotTo(HaveOccurred())
		Expect(wb.SetCellValue("Holidays", "A1", "New Year")).To(Succeed())
		Expect(wb.SaveAs(path)).To(Succeed())
		Expect(wb.Close()).To(Succeed())

		text, err := documents.Extract(path, "leave.xlsx")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("Sheet: Sheet1\nname,days\nvacation,20\n"))
		Expect(text).To(ContainSubstring("Sheet: Holidays\nNew Year\n"))
	})

	It("renders csv files as a single sheet", func() {
		path := filepath.Join(dir, "upload-2")
		Expect(os.WriteFile(path, []byte("team,lead\nsupport,\"Doe, Jane\"\n"), 0o600)).To(Succeed())

		text, err := documents.Extract(path, "teams.csv")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Sheet: Sheet1\nteam,lead\nsupport,\"Doe, Jane\"\n\n\n"))
	})

	It("reports unreadable pdfs", func() {
		path := filepath.Join(dir, "broken.pdf")
		Expect(os.WriteFile(path, []byte("not a pdf"), 0o600)).To(Succeed())

		_, err := documents.Extract(path, "broken.pdf")
		Expect(err).To(MatchError(ContainSubstring("opening pdf")))
	})

	It("rejects unsupported extensions", func() {
		_, err := documents.Extract(filepath.Join(dir, "x"), "slides.pptx")
		Expect(err).To(MatchError(documents.ErrUnsupportedType))
		Expect(err.Error()).To(ContainSubstring(".pptx. Supported types: .pdf, .docx, .txt, .xlsx, .csv"))
	})
})
