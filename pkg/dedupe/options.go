package dedupe

import (
	"runtime"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/grouper"
	"github.com/autobrr/linkdupe/pkg/signature"
)

type Options struct {
	// DryRun computes groups and outcomes without touching the filesystem.
	DryRun bool
	// VerifyContent byte-compares every pair before it is linked.
	VerifyContent bool
	MinSize       int64
	IgnoreSmall   bool
	// Workers bounds signature, hashing and verification parallelism, and the
	// number of devices linked concurrently.
	Workers int
	// OpenRate limits file opens per second, 0 is unlimited.
	OpenRate int
	Sampler  signature.Sampler
	Order    grouper.Order
	Filter   catalog.Filter
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Sampler == nil {
		o.Sampler = signature.Adaptive{Window: signature.DefaultWindow, Samples: signature.DefaultSamples}
	}
	if len(o.Order) == 0 {
		o.Order = grouper.DefaultOrder
	}
	return o
}
