// Package lms is the client for the LMS REST backend.
//
// The Client owns the access-token lifecycle: it decorates every outgoing
// request with the stored bearer token and session id, recovers from 401
// responses through a single-flight token refresh, resubmits the failed
// request exactly once, and clears credentials (firing the session-expired
// hook) when the refresh endpoint itself rejects the session. Concurrent
// 401s share one refresh call; all of them are replayed with the same new
// token or fail together.
//
// Credentials live behind the CredentialStore interface; the file-backed
// implementation scopes one credential pair to one kiosk instance, the way
// the web client scopes a pair to one browser tab.
package lms
