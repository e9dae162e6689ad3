package model

import (
	"errors"
	"fmt"
)

// Base error categories. Call sites wrap these with context via
// fmt.Errorf("...: %s%w", ...) so errors.Is keeps working.
var ErrInvalidParameter = errors.New("") // Base error for invalid parameter
var ErrDataNotFound = errors.New("")     // Base error for data not found
var ErrAlreadyExists = errors.New("")    // Base error for refusing to clobber existing material

var ErrCertNotFound = fmt.Errorf("certificate not found%w", ErrDataNotFound)
var ErrMalformedPEM = fmt.Errorf("malformed PEM material%w", ErrInvalidParameter)
var ErrInvalidCSR = fmt.Errorf("invalid certificate signing request%w", ErrInvalidParameter)
var ErrUnverifiedCertificate = fmt.Errorf("certificate not verified by the given CA%w", ErrInvalidParameter)
var ErrUnsupportedKeySize = fmt.Errorf("unsupported key size%w", ErrInvalidParameter)
