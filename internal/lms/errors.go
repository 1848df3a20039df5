package lms

import "errors"

var (
	// ErrUnauthenticated is returned when an operation requires credentials
	// and none are stored. Requests are still sent without credentials; this
	// error only surfaces where the client can tell the call is pointless,
	// such as logout.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrSessionMissing is returned when a refresh is attempted without a
	// stored session id. Terminal: credentials are cleared.
	ErrSessionMissing = errors.New("no session id available for refresh")
	// ErrRefreshFailed is returned when the refresh endpoint rejects the
	// session or cannot be reached. Terminal: credentials are cleared.
	ErrRefreshFailed = errors.New("token refresh failed")
)
