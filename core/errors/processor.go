package errors

import stderrors "errors"

var (
	ErrUnknownAction        = stderrors.New("core: unknown action")
	ErrInvalidAccount       = stderrors.New("core: account required")
	ErrCustodianUnavailable = stderrors.New("core: custodian balance unavailable")
	ErrProcessorClosed      = stderrors.New("core: processor not configured")
)
