package model

import "errors"

// User-facing precondition errors. Generation aborts before any network or
// geometry work when one of these is raised; everything below the assembler
// (terrain, geofence) degrades to safe defaults instead of failing.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrMissingLocation  = errors.New("required location not set")
)
