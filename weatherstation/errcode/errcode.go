// Package errcode defines the stable error identifiers shared by the
// weather station components.
package errcode

// Code is a stable error identifier. It is a string newtype, comparable,
// allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK                 Code = "ok"
	SensorFault        Code = "sensor_fault"
	AssociationTimeout Code = "association_timeout"
	BroadcastSetup     Code = "broadcast_setup"
	MalformedRequest   Code = "malformed_request"
	InvalidParams      Code = "invalid_params"
	Busy               Code = "busy"
	Unsupported        Code = "unsupported"

	Error Code = "error" // generic fallback
)

// E attaches an operation, a message and a cause to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

// Wrap returns an *E for code c, recording op and the underlying cause.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
