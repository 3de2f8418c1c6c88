package ctm

import "errors"

// Domain errors for the ctm package.
var (
	// ErrDecodingFailed is returned when raw words cannot form a WireMatrix.
	ErrDecodingFailed = errors.New("ctm: decoding failed")
)
