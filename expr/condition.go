// Package expr builds DynamoDB condition, filter and update expressions
// from typed trees over schema attributes, assigning placeholder-safe
// name and value aliases.
package expr

import (
	"fmt"

	"github.com/jacentio/espalier/schema"
)

// Condition is an immutable node in a boolean expression tree. Nodes are
// created by the package's constructor functions and compiled by a
// Builder.
type Condition interface {
	compile(b *Builder) (string, error)
}

// BuildError reports a malformed expression tree. It is a programmer
// error and never recoverable at runtime.
type BuildError struct {
	msg string
}

func buildErrorf(format string, args ...any) *BuildError {
	return &BuildError{msg: fmt.Sprintf(format, args...)}
}

func (e *BuildError) Error() string {
	return "espalier: " + e.msg
}

type comparison struct {
	attr  *schema.Attribute
	op    string
	value any
}

type between struct {
	attr   *schema.Attribute
	lo, hi any
}

type in struct {
	attr   *schema.Attribute
	values []any
}

type existence struct {
	attr   *schema.Attribute
	negate bool
}

type fn struct {
	attr  *schema.Attribute
	name  string // "begins_with" or "contains"
	value any
}

type junction struct {
	op       string // "AND" or "OR"
	operands []Condition
}

type not struct {
	operand Condition
}

// Equal compares an attribute to a literal value.
func Equal(a *schema.Attribute, v any) Condition { return &comparison{attr: a, op: "=", value: v} }

// NotEqual compares an attribute to a literal value.
func NotEqual(a *schema.Attribute, v any) Condition { return &comparison{attr: a, op: "<>", value: v} }

// LessThan compares an attribute to a literal value.
func LessThan(a *schema.Attribute, v any) Condition { return &comparison{attr: a, op: "<", value: v} }

// LessOrEqual compares an attribute to a literal value.
func LessOrEqual(a *schema.Attribute, v any) Condition {
	return &comparison{attr: a, op: "<=", value: v}
}

// GreaterThan compares an attribute to a literal value.
func GreaterThan(a *schema.Attribute, v any) Condition {
	return &comparison{attr: a, op: ">", value: v}
}

// GreaterOrEqual compares an attribute to a literal value.
func GreaterOrEqual(a *schema.Attribute, v any) Condition {
	return &comparison{attr: a, op: ">=", value: v}
}

// Between matches attributes within the closed range [lo, hi].
func Between(a *schema.Attribute, lo, hi any) Condition {
	return &between{attr: a, lo: lo, hi: hi}
}

// In matches attributes equal to any of the given values.
func In(a *schema.Attribute, values ...any) Condition {
	return &in{attr: a, values: values}
}

// Exists matches items that carry the attribute.
func Exists(a *schema.Attribute) Condition { return &existence{attr: a} }

// NotExists matches items that do not carry the attribute.
func NotExists(a *schema.Attribute) Condition { return &existence{attr: a, negate: true} }

// BeginsWith matches String or Binary attributes with the given prefix.
func BeginsWith(a *schema.Attribute, prefix any) Condition {
	return &fn{attr: a, name: "begins_with", value: prefix}
}

// Contains matches String, Binary and set attributes containing the given
// substring or member.
func Contains(a *schema.Attribute, v any) Condition {
	return &fn{attr: a, name: "contains", value: v}
}

// And combines conditions; all operands must hold. Operands are always
// parenthesized, so precedence is preserved at any nesting depth.
func And(first, second Condition, rest ...Condition) Condition {
	return &junction{op: "AND", operands: append([]Condition{first, second}, rest...)}
}

// Or combines conditions; at least one operand must hold.
func Or(first, second Condition, rest ...Condition) Condition {
	return &junction{op: "OR", operands: append([]Condition{first, second}, rest...)}
}

// Not inverts a condition.
func Not(c Condition) Condition { return &not{operand: c} }

func (c *comparison) compile(b *Builder) (string, error) {
	name := b.name(c.attr)
	tok, err := b.value(c.attr, c.value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", name, c.op, tok), nil
}

func (c *between) compile(b *Builder) (string, error) {
	name := b.name(c.attr)
	lo, err := b.value(c.attr, c.lo)
	if err != nil {
		return "", err
	}
	hi, err := b.value(c.attr, c.hi)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s BETWEEN %s AND %s", name, lo, hi), nil
}

func (c *in) compile(b *Builder) (string, error) {
	if len(c.values) == 0 {
		return "", buildErrorf("IN condition on %q has no values", c.attr.Name)
	}
	name := b.name(c.attr)
	out := name + " IN ("
	for i, v := range c.values {
		tok, err := b.value(c.attr, v)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += ", "
		}
		out += tok
	}
	return out + ")", nil
}

func (c *existence) compile(b *Builder) (string, error) {
	if c.negate {
		return fmt.Sprintf("attribute_not_exists(%s)", b.name(c.attr)), nil
	}
	return fmt.Sprintf("attribute_exists(%s)", b.name(c.attr)), nil
}

func (c *fn) compile(b *Builder) (string, error) {
	switch c.attr.Type {
	case schema.String, schema.Binary, schema.StringSet, schema.NumberSet, schema.BinarySet:
	default:
		return "", buildErrorf("%s is not applicable to %s attribute %q", c.name, c.attr.Type, c.attr.Name)
	}
	tok, err := b.elementValue(c.attr, c.value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", c.name, b.name(c.attr), tok), nil
}

func (c *junction) compile(b *Builder) (string, error) {
	out := ""
	for i, op := range c.operands {
		s, err := op.compile(b)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += " " + c.op + " "
		}
		out += "(" + s + ")"
	}
	return out, nil
}

func (c *not) compile(b *Builder) (string, error) {
	s, err := c.operand.compile(b)
	if err != nil {
		return "", err
	}
	return "NOT (" + s + ")", nil
}
