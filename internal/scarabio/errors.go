// Package scarabio holds the tagged error kinds shared by the link, image
// transcoder and upload subsystems, grounded on goserial's Error{msg, err}
// wrapper rather than ad-hoc error strings or panics.
package scarabio

// Kind tags an Error with the policy-relevant failure class from spec.md §7.
// Kinds are never used for control flow via type switches on concrete
// exception types - callers branch on Kind, the zero value ("") means
// "not a scarabio.Error".
type Kind string

const (
	KindPortEnumerationFailed Kind = "PortEnumerationFailed"
	KindPortBusy              Kind = "PortBusy"
	KindHandshakeTimeout      Kind = "HandshakeTimeout"
	KindWriteFailed           Kind = "WriteFailed"
	KindReadFailed            Kind = "ReadFailed"
	KindChunkRejected         Kind = "ChunkRejected"
	KindChunkTimeout          Kind = "ChunkTimeout"
	KindCrcMismatch           Kind = "CrcMismatch"
	KindImageDecodeFailed     Kind = "ImageDecodeFailed"
	KindCancelled             Kind = "Cancelled"
)

// Error is a tagged error value. It wraps an underlying cause where one
// exists so %w / errors.Is / errors.As keep working.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a tagged Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a tagged Error around an underlying cause. Returns nil if err
// is nil, so it composes at call sites like fmt.Errorf("...: %w", err).
func Wrap(kind Kind, msg string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
