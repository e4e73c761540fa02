package tracker

import "errors"

// Failure kinds surfaced by the registry and catalog. The request loop
// converts every one of these into a fail reply; none of them terminate
// the tracker.
var (
	ErrBadCredentials  = errors.New("bad credentials")
	ErrAlreadyLoggedIn = errors.New("already logged in")
	ErrUnknownUser     = errors.New("unknown user")
	ErrNotFound        = errors.New("file not found")
	ErrNotOwner        = errors.New("requester is not the publisher")
	ErrPeerUnavailable = errors.New("file owner is not active")
	ErrEmptyFilename   = errors.New("filename required")
)
