package reclaimer

import "errors"

// Refusals. None of them writes a record or touches the tracked account.
var (
	ErrMissingSigner    = errors.New("operator signing credential is not configured")
	ErrWhitelisted      = errors.New("account is whitelisted")
	ErrNotOperatorOwned = errors.New("account is not owned by the operator")
	ErrAccountClosed    = errors.New("account is already closed")
	ErrAlreadyReclaimed = errors.New("account was already reclaimed")
	ErrNotTokenAccount  = errors.New("account is not an spl token account")
	ErrNotTracked       = errors.New("account is not tracked, ownership is unknown in dry run")
)
