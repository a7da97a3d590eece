// Package kff implements the known-file fingerprint pass that runs over a
// payload before any setup mutation.
//
// Handler computes sha256 and md5 digests of the primary data and records
// them on the payload. When a Store is attached, a digest that matches a
// known entry applies that entry's disposition: a replacement current form,
// a file type, and optionally truncating the data. Store persists entries in
// SQLite so fixtures shared across runs can be marked known once.
package kff
