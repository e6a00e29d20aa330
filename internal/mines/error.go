package mines

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid field configuration")
	ErrOutOfBounds          = errors.New("cell position out of bounds")
)
