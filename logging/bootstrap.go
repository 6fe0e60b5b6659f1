package logging

import "github.com/ulta-agent/ulta/reporter"

// bootstrapCacheSize caps how many early log records are retained before
// identity is known. Generous but not unbounded: a crash loop before
// registration shouldn't let this grow forever.
const bootstrapCacheSize = 10_000

// NewBootstrapSink returns a queue meant to be wired into a SinkCore before
// the agent has registered and learned its log group id. Once the first
// real LogMessageProcessor is constructed, call Drain and Put each item
// back onto that processor's own queue so no early record is lost.
func NewBootstrapSink() *reporter.Source {
	return reporter.NewSource(bootstrapCacheSize)
}

// Drain moves every record out of bootstrap and into dest, preserving
// order.
func Drain(bootstrap, dest *reporter.Source) {
	for _, item := range bootstrap.Drain() {
		dest.Put(item)
	}
}
