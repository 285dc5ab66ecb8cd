package parser

import "fmt"

// MalformedFieldError reports a numeric field that matched the line
// pattern but could not be converted.
type MalformedFieldError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed %s value %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

// LineError annotates a parse failure with its 1-based line number.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
