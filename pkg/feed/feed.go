// Package feed contains fragment producers: a caption file follower and a
// scripted demo meeting. Producers only ever call Put.
package feed

import (
	"github.com/papercomputeco/minutes/pkg/transcript"
)

// Putter accepts fragments. *bus.Bus satisfies it.
type Putter interface {
	Put(f transcript.Fragment)
}
