// Package codec converts payloads to and from the answer document format.
//
// Encoding and decoding are symmetric and share one named Policy. Under the
// default policy a buffer that cannot be written as plain XML text is stored
// base64 encoded and flagged with matchMode="base64". Under the sha256 policy
// such buffers are replaced by the hex digest of their bytes; Mask applies
// the same replacement to a live payload so the checker compares like with
// like. A golden file generated under one policy must be verified under the
// same policy.
package codec
