package schema

import (
	"errors"
	"fmt"
)

// ErrEmptySet marks a marshal failure caused by an empty set value. The
// store rejects empty sets; the update layer translates a SET of an empty
// set into attribute removal instead of surfacing this error.
var ErrEmptySet = errors.New("espalier: empty set")

// SchemaError reports an invalid model definition. It is fatal at
// definition time.
type SchemaError struct {
	msg string
}

func schemaErrorf(format string, args ...any) *SchemaError {
	return &SchemaError{msg: fmt.Sprintf(format, args...)}
}

func (e *SchemaError) Error() string {
	return "espalier: " + e.msg
}

// MarshalError reports a native value that cannot be serialized to its
// attribute's wire type.
type MarshalError struct {
	Attr string
	Type WireType
	msg  string
	err  error
}

func marshalErrorf(a *Attribute, format string, args ...any) *MarshalError {
	return &MarshalError{Attr: a.Name, Type: a.Type, msg: fmt.Sprintf(format, args...)}
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("espalier: cannot marshal attribute %q as %s: %s", e.Attr, e.Type, e.msg)
}

func (e *MarshalError) Unwrap() error {
	return e.err
}

// UnmarshalError reports a wire value whose tag does not match the
// attribute's declared wire type.
type UnmarshalError struct {
	Attr string
	Type WireType
	msg  string
}

func unmarshalErrorf(a *Attribute, format string, args ...any) *UnmarshalError {
	return &UnmarshalError{Attr: a.Name, Type: a.Type, msg: fmt.Sprintf(format, args...)}
}

func (e *UnmarshalError) Error() string {
	return fmt.Sprintf("espalier: cannot unmarshal attribute %q as %s: %s", e.Attr, e.Type, e.msg)
}
