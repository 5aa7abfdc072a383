package static_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/llm/provider/static"
)

var _ = Describe("Client", func() {
	It("answers with the configured text", func() {
		c := static.New("- nothing decided yet")
		reply, err := c.Complete(context.Background(), "system", []llm.Message{llm.NewTextMessage("user", "hi")})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Content).To(Equal("- nothing decided yet"))
		Expect(reply.Model).To(Equal(static.Name))
	})

	It("falls back to the default text", func() {
		reply, err := static.New("  ").Complete(context.Background(), "", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Content).To(Equal(static.DefaultText))
	})

	It("fails transiently once the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := static.New("x").Complete(ctx, "", nil)
		Expect(err).To(HaveOccurred())
		Expect(llm.KindOf(err)).To(Equal(llm.KindTransient))
	})
})
