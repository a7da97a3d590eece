// Package regression runs answer-document regression tests.
//
// A Runner discovers raw resources (*.dat) in a fixture directory, pairs each
// with its answer document (*.xml), rebuilds the initial payload from the
// setup section, runs the processor under test inside a scoped log capture
// and checks the outcome. With Generate set, answer documents are rewritten
// from the current behaviour before they are verified.
package regression
