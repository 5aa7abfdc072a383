package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("returns the function's error and prints a final line", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "Opening storage", func() error {
				return errors.New("disk full")
			})
			Expect(err).To(MatchError("disk full"))
			Expect(buf.String()).To(ContainSubstring("Opening storage"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})

		It("writes only the final line when the writer is not a terminal", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "Writing minutes.md", func() error {
				time.Sleep(200 * time.Millisecond)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(HavePrefix("\r  " + cliui.SuccessMark + " Writing minutes.md ("))
			Expect(strings.Count(buf.String(), "\r")).To(Equal(1))
		})
	})

	Describe("FormatDuration", func() {
		It("uses milliseconds below one second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("SpeakerStyle", func() {
		It("is stable for a speaker", func() {
			a := cliui.SpeakerStyle("Alice").GetForeground()
			Expect(cliui.SpeakerStyle("Alice").GetForeground()).To(Equal(a))
		})
	})

	Describe("RenderMarkdownWidth", func() {
		It("renders headings without the markdown markers", func() {
			out, err := cliui.RenderMarkdownWidth("# Decisions\n\n- ship it", 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Decisions"))
			Expect(out).To(ContainSubstring("ship it"))
		})
	})
})
