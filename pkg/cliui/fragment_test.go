package cliui_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/cliui"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

var _ = Describe("FormatFragment", func() {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.Local)

	It("includes the time, speaker, and text", func() {
		out := cliui.FormatFragment(transcript.New(ts, "Alice", "Revenue is up."), 0)
		Expect(out).To(ContainSubstring("09:30:00"))
		Expect(out).To(ContainSubstring("Alice:"))
		Expect(out).To(ContainSubstring("Revenue is up."))
	})

	It("labels unknown speakers", func() {
		out := cliui.FormatFragment(transcript.New(ts, "", "hello"), 0)
		Expect(out).To(ContainSubstring(transcript.DefaultSpeaker + ":"))
	})

	It("truncates long text", func() {
		out := cliui.FormatFragment(transcript.New(ts, "Bob", "abcdefghij"), 4)
		Expect(out).To(ContainSubstring("abcd..."))
		Expect(out).NotTo(ContainSubstring("abcde"))
	})
})
