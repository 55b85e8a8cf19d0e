package led

import "errors"

// Sentinel errors returned by Controller operations. Callers match them with
// errors.Is; wrapped messages carry the offending LED and values.
var (
	ErrNotInitialized  = errors.New("led controller not initialized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrDriverInit      = errors.New("driver initialization failed")
)
