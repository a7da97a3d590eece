// Package answers reads and writes answer documents.
//
// An answer document is an XML tree with an optional setup section, consumed
// before the processor runs, and an optional answers section, consumed after.
// The answers section nests att<N> and extract<N> sub-sections that share its
// structure. This package only knows the tree shape; the meaning of each
// element lives in the setup, checker and codec packages.
package answers
