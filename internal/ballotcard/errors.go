package ballotcard

import "fmt"

// ErrorKind enumerates the ballot-interpretation error variants from the
// error handling design: every one is surfaced to the caller and none is
// retried internally, except the streak re-check described in card.go.
type ErrorKind int

const (
	ErrBorderInsetNotFound ErrorKind = iota
	ErrInvalidCardMetadata
	ErrInvalidQrCodeMetadata
	ErrMismatchedPrecincts
	ErrMismatchedBallotStyles
	ErrNonConsecutivePageNumbers
	ErrMismatchedBallotCardGeometries
	ErrMissingGridLayout
	ErrMissingTimingMarks
	ErrUnexpectedDimensions
	ErrInvalidScale
	ErrCouldNotComputeLayout
	ErrVerticalStreaksDetected
	ErrInvalidElection
)

func (k ErrorKind) String() string {
	switch k {
	case ErrBorderInsetNotFound:
		return "BorderInsetNotFound"
	case ErrInvalidCardMetadata:
		return "InvalidCardMetadata"
	case ErrInvalidQrCodeMetadata:
		return "InvalidQrCodeMetadata"
	case ErrMismatchedPrecincts:
		return "MismatchedPrecincts"
	case ErrMismatchedBallotStyles:
		return "MismatchedBallotStyles"
	case ErrNonConsecutivePageNumbers:
		return "NonConsecutivePageNumbers"
	case ErrMismatchedBallotCardGeometries:
		return "MismatchedBallotCardGeometries"
	case ErrMissingGridLayout:
		return "MissingGridLayout"
	case ErrMissingTimingMarks:
		return "MissingTimingMarks"
	case ErrUnexpectedDimensions:
		return "UnexpectedDimensions"
	case ErrInvalidScale:
		return "InvalidScale"
	case ErrCouldNotComputeLayout:
		return "CouldNotComputeLayout"
	case ErrVerticalStreaksDetected:
		return "VerticalStreaksDetected"
	case ErrInvalidElection:
		return "InvalidElection"
	default:
		return "Unknown"
	}
}

// InterpretError is the tagged error type returned by every ballotcard
// operation that can fail. Kind() lets callers switch on the variant the
// way they would match a Rust enum; variant-specific fields are populated
// only for the kinds that carry data.
type InterpretError struct {
	Kind_   ErrorKind
	Reason  string   // MissingTimingMarks
	Label   string   // VerticalStreaksDetected
	XCoords []int    // VerticalStreaksDetected
}

func (e *InterpretError) Kind() ErrorKind { return e.Kind_ }

func (e *InterpretError) Error() string {
	switch e.Kind_ {
	case ErrMissingTimingMarks:
		return fmt.Sprintf("MissingTimingMarks: %s", e.Reason)
	case ErrVerticalStreaksDetected:
		return fmt.Sprintf("VerticalStreaksDetected{label:%q, x_coordinates:%v}", e.Label, e.XCoords)
	default:
		return e.Kind_.String()
	}
}

func newError(kind ErrorKind) *InterpretError {
	return &InterpretError{Kind_: kind}
}

func missingTimingMarks(reason string) *InterpretError {
	return &InterpretError{Kind_: ErrMissingTimingMarks, Reason: reason}
}

func verticalStreaks(label string, xCoords []int) *InterpretError {
	return &InterpretError{Kind_: ErrVerticalStreaksDetected, Label: label, XCoords: xCoords}
}
