package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/storage/inmemory"
	"github.com/papercomputeco/minutes/pkg/storage/storagetest"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

var _ = Describe("Driver", func() {
	storagetest.DriverBehaviors(func() storage.Driver {
		return inmemory.NewDriver()
	})

	It("does not let callers alias stored segments", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		Expect(d.Append(ctx, transcript.New(time.Now(), "", "original"))).To(Succeed())

		segs, err := d.Segments(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		segs[0].Text = "mutated"

		again, err := d.Segments(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].Text).To(Equal("original"))
	})
})
