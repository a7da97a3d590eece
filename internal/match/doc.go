// Package match evaluates a single declared expectation against an actual
// string value under a named comparison mode.
//
// Supported modes are equals (the default), contains and its alias index,
// the negated !contains and !index, match (full regular expression match),
// base64 (expected text is decoded before an equality check) and collection
// (order-independent comparison of separator-delimited tokens). Any other
// mode is malformed test data and fails unconditionally.
package match
