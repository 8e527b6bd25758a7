package flexconf

import "fmt"

// ErrorKind classifies a diagnostic. The set is closed per spec.md §7;
// implementations must keep it stable even though no error-code table is
// mandated.
type ErrorKind int

const (
	EncodingError ErrorKind = iota
	SyntaxError
	IndentationError
	ModeMismatchError
	KeyError
	NumberError
	PragmaError
)

func (k ErrorKind) String() string {
	switch k {
	case EncodingError:
		return "EncodingError"
	case SyntaxError:
		return "SyntaxError"
	case IndentationError:
		return "IndentationError"
	case ModeMismatchError:
		return "ModeMismatchError"
	case KeyError:
		return "KeyError"
	case NumberError:
		return "NumberError"
	case PragmaError:
		return "PragmaError"
	default:
		return "UnknownError"
	}
}

// Error is the single diagnostic type returned by every stage of the
// pipeline. Fill in Span whenever a position is known; leave it zero for
// errors discovered before any token exists (e.g. encoding failures).
type Error struct {
	Kind    ErrorKind
	Message string
	Span    Span

	// OrigError is the lower-level cause, if any (e.g. a transform error
	// surfaced while stripping a BOM). Unwrap exposes it so callers can
	// use errors.Is/errors.As against it.
	OrigError error

	// snippet is filled in lazily by whichever stage has buffer access;
	// empty when no source line is available to render.
	snippet string
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s", e.Kind)
	if e.Span.Line > 0 {
		s += fmt.Sprintf(" | Line %d Col %d", e.Span.Line, e.Span.Column)
	}
	s += "] " + e.Message
	if e.snippet != "" {
		s += "\n" + e.snippet
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.OrigError
}

// withSnippet attaches a rendered caret snippet to a *Error once the
// buffer that produced it is available. Errors raised before the buffer
// exists (encoding failures) are returned unchanged.
func withSnippet(err error, b *buffer) error {
	if err == nil || b == nil {
		return err
	}
	fe, ok := err.(*Error)
	if !ok || fe.Span.Line == 0 || fe.snippet != "" {
		return err
	}
	fe.snippet = b.snippet(fe.Span)
	return fe
}
