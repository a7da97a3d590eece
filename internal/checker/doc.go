// Package checker verifies a processed payload against the answers section
// of an answer document.
//
// Check walks the answers element and each att<N> element with one
// recursive node check: count reconciliation for attachments and extracted
// records, scalar fields, metadata, primary data and alternate views, then
// descent into extract<N> elements. The first failed assertion ends the
// check. Elements may carry an os-release attribute restricting them to one
// recognized OS; an unrecognized identifier is malformed test data.
//
// CheckLogEvents compares captured log events with the logEvents section and
// CheckStrict compares the whole decoded answer tree with the actual payload.
package checker
