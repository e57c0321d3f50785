// Package google provides shared OAuth2 authentication for the Google APIs
// used by taskdeck (Calendar and Gmail).
//
// The package owns the token lifecycle: tokens are cached in memory and
// backed by a refresh credential on disk, re-obtained via interactive
// consent when refresh is impossible, and explicitly invalidated when a
// remote call is rejected with 401.
//
// Every remote operation in taskdeck is issued through WithAuthRetry, which
// implements the system-wide contract: a 401 response invalidates the token
// and retries the request exactly once with a fresh token; a second 401 is
// a fatal AuthError for that operation.
package google
