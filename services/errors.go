package services

import "errors"

// Sentinel errors returned from transaction bodies. Handlers map these onto
// HTTP statuses; anything else that escapes a transaction is treated as an
// infrastructure failure and answered with a generic 500.
var (
	errMatchNotFound    = errors.New("match not found")
	errSessionNotFound  = errors.New("session not found")
	errMatchFull        = errors.New("match is full")
	errNotOwner         = errors.New("not authorized")
	errMissingRoles     = errors.New("at least 1 hunter and 1 criminal are required to start the match")
	errAlreadyStarted   = errors.New("match already starting or started")
	errInvalidIteration = errors.New("invalid iteration")
	errCodesExhausted   = errors.New("could not allocate a unique joincode")
)
