package element

import (
	elerrors "github.com/vango-dev/elements/internal/errors"
)

// Error targets for errors.Is. They match any error carrying the same
// code, whatever element or cause it reports.
var (
	ErrMissingSupertypeBase       error = elerrors.New("E201")
	ErrNativeRegistrationConflict error = elerrors.New("E202")
	ErrTransform                  error = elerrors.New("E203")
	ErrInvalidName                error = elerrors.New("E204")
	ErrRegisterCallback           error = elerrors.New("E206")
)
