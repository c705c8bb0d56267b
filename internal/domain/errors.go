package domain

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrPaused                 = errors.New("engine paused")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadySettled         = errors.New("already settled")
	ErrDeadlineNotReached     = errors.New("deadline not reached")
	ErrTimelocked             = errors.New("timelocked")
	ErrNotAttested            = errors.New("not attested")
	ErrAlreadyAttested        = errors.New("already attested")
	ErrTransferFailed         = errors.New("asset transfer failed")
	ErrBadSignature           = errors.New("bad signature")
	ErrSignatureExpired       = errors.New("signature expired")
	ErrNonceMismatch          = errors.New("nonce mismatch")
)
