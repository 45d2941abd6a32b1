package pipeline

import "fmt"

// Kind classifies why a prediction failed.
type Kind int

const (
	InputError Kind = iota + 1
	BandMissing
	ClipFailure
	ShapeMismatch
	GeorefMismatch
	ClassificationFailure
	WriteFailure
)

func (k Kind) String() string {
	switch k {
	case InputError:
		return "input error"
	case BandMissing:
		return "band missing"
	case ClipFailure:
		return "clip failure"
	case ShapeMismatch:
		return "shape mismatch"
	case GeorefMismatch:
		return "georef mismatch"
	case ClassificationFailure:
		return "classification failure"
	case WriteFailure:
		return "write failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the failure of one pipeline stage.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind alone, so errors.Is(err, &Error{Kind: k})
// tests the failure class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func fail(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
