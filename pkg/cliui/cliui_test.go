package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/kbase/pkg/cliui"
)

var _ = Describe("cliui", func() {
	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("marks success and failure", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})

	It("formats similarity as a percentage", func() {
		Expect(cliui.FormatSimilarity(0.873)).To(ContainSubstring("87.3%"))
		Expect(cliui.FormatSimilarity(0.1)).To(ContainSubstring("10.0%"))
	})

	It("runs the step and reports its result", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "ingesting handbook.pdf", func() error {
			return errors.New("boom")
		})
		Expect(err).To(MatchError("boom"))
		Expect(buf.String()).To(ContainSubstring("ingesting handbook.pdf"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("writes key value lines", func() {
		var buf bytes.Buffer
		cliui.KeyValue(&buf, "documents", 42)
		Expect(buf.String()).To(ContainSubstring("documents"))
		Expect(buf.String()).To(ContainSubstring("42"))
	})
})
