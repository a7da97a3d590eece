// Package main hosts the goldcheck CLI entrypoint and command graph.
//
// The Cobra-based command tree verifies fixture directories against their
// answer documents, regenerates answers, maintains the known-file database
// and scaffolds configuration. Configuration resolution and logging setup
// live here so subcommands only assemble a regression.Runner and render its
// results.
package main
