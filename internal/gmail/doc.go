// Package gmail provides the remote mail client used for nightly digests and
// notification welcome/goodbye messages.
//
// The client exposes a single Send operation. It builds a standards-compliant
// single-part plain-text message, base64url-encodes it and submits it as one
// raw send call under the system-wide one-retry-on-401 contract. The sender
// identity is resolved from the authenticated profile on every call rather
// than cached, since it may change before the identity is established.
package gmail
