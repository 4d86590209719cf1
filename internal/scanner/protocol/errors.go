package protocol

import "errors"

// ErrValidateRequest is returned when a caller-supplied value fails
// validation before any bytes are transmitted (e.g. an out-of-range
// percentage or document length).
var ErrValidateRequest = errors.New("validate request")

// ErrParse is returned by Parse when an inbound frame's body is empty, or
// carries a known tag whose payload is too short or malformed to extract a
// typed value. Bodies with an unrecognized tag are returned as Unknown
// instead, without an error.
var ErrParse = errors.New("parse")
