// Package storagetest holds the behaviors every storage.Driver must satisfy.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// DriverBehaviors registers the shared driver specs. newDriver is called
// before each spec and must return an empty store.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		t0     time.Time
	)

	BeforeEach(func() {
		driver = nil
		ctx = context.Background()
		t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Append and Segments", func() {
		It("returns an empty list for a new store", func() {
			segs, err := driver.Segments(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(segs).To(BeEmpty())
		})

		It("returns segments oldest first with speaker and text intact", func() {
			Expect(driver.Append(ctx, transcript.New(t0, "Alice", "first"))).To(Succeed())
			Expect(driver.Append(ctx, transcript.New(t0.Add(3*time.Second), "", "second"))).To(Succeed())

			segs, err := driver.Segments(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(segs).To(HaveLen(2))

			Expect(segs[0].Text).To(Equal("first"))
			Expect(segs[0].SpeakerName()).To(Equal("Alice"))
			Expect(segs[0].Timestamp).To(BeTemporally("==", t0))
			Expect(segs[0].ID).To(BeNumerically("<", segs[1].ID))

			Expect(segs[1].Text).To(Equal("second"))
			Expect(segs[1].Speaker).To(BeNil())
		})

		It("limits to the most recent segments", func() {
			for i := range 5 {
				Expect(driver.Append(ctx, transcript.New(t0.Add(time.Duration(i)*time.Second), "", fmt.Sprint(i)))).To(Succeed())
			}

			segs, err := driver.Segments(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(segs).To(HaveLen(2))
			Expect(segs[0].Text).To(Equal("3"))
			Expect(segs[1].Text).To(Equal("4"))
		})

		It("persists every fragment from concurrent writers exactly once", func() {
			var wg sync.WaitGroup
			for w := range 4 {
				wg.Add(1)
				go func(w int) {
					defer GinkgoRecover()
					defer wg.Done()
					for i := range 10 {
						Expect(driver.Append(ctx, transcript.New(t0, "", fmt.Sprintf("%d-%d", w, i)))).To(Succeed())
					}
				}(w)
			}
			wg.Wait()

			segs, err := driver.Segments(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(segs).To(HaveLen(40))

			seen := map[string]bool{}
			for _, s := range segs {
				Expect(seen).NotTo(HaveKey(s.Text))
				seen[s.Text] = true
			}
		})
	})

	Describe("Summaries", func() {
		It("returns ErrNotFound before any summary", func() {
			_, err := driver.LatestSummary(ctx)
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("returns the newest summary and the history oldest first", func() {
			Expect(driver.AppendSummary(ctx, "one")).To(Succeed())
			Expect(driver.AppendSummary(ctx, "two")).To(Succeed())
			Expect(driver.AppendSummary(ctx, "three")).To(Succeed())

			latest, err := driver.LatestSummary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Text).To(Equal("three"))

			all, err := driver.Summaries(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].Text).To(Equal("one"))

			recent, err := driver.Summaries(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Text).To(Equal("two"))
			Expect(recent[1].Text).To(Equal("three"))
		})
	})
}
