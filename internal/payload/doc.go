// Package payload models the object handed to a processor under test.
//
// A Payload carries a stack of current forms (the last pushed form is the
// most specific), scalar labels such as file type and classification, the
// primary data buffer, named alternate views, multi-valued string metadata
// and the records a processor extracted from it. Payloads are created fresh
// for every test case and are never shared between cases, so the type does
// no locking of its own.
package payload
