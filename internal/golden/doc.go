// Package golden produces answer documents by running a processor over a raw
// resource and recording what it did.
//
// A generated document carries a setup section that rebuilds the initial
// payload and an answers section that describes the final payload, its
// attachments and, when a logger is captured, the log events emitted during
// processing. Existing setup sections are carried over unchanged so that
// hand-written fixtures survive regeneration.
package golden
