package expr

import (
	"fmt"
	"reflect"

	"github.com/jacentio/espalier/schema"
)

type clauseKind int

const (
	clauseSet clauseKind = iota
	clauseRemove
	clauseAdd
	clauseDelete
)

var clauseKeywords = map[clauseKind]string{
	clauseSet:    "SET",
	clauseRemove: "REMOVE",
	clauseAdd:    "ADD",
	clauseDelete: "DELETE",
}

// Update is an immutable update action referencing one attribute. Actions
// are grouped by clause keyword when compiled; an attribute may appear in
// at most one clause per compiled expression.
type Update struct {
	kind  clauseKind
	attr  *schema.Attribute
	value any
}

// Set assigns a literal value to an attribute. Setting a set-typed
// attribute to an empty set removes the attribute instead, since the
// store cannot represent empty sets.
func Set(a *schema.Attribute, v any) Update { return Update{kind: clauseSet, attr: a, value: v} }

// Remove deletes an attribute from the item.
func Remove(a *schema.Attribute) Update { return Update{kind: clauseRemove, attr: a} }

// Add increments a Number attribute or inserts members into a set
// attribute, creating the attribute when absent.
func Add(a *schema.Attribute, v any) Update { return Update{kind: clauseAdd, attr: a, value: v} }

// Delete removes members from a set attribute.
func Delete(a *schema.Attribute, v any) Update { return Update{kind: clauseDelete, attr: a, value: v} }

// Attribute returns the attribute the action operates on.
func (u Update) Attribute() *schema.Attribute { return u.attr }

// normalize rewrites a SET of an empty set value into a REMOVE.
func (u Update) normalize() Update {
	if u.kind == clauseSet && isEmptySet(u.attr, u.value) {
		return Update{kind: clauseRemove, attr: u.attr}
	}
	return u
}

func isEmptySet(a *schema.Attribute, v any) bool {
	if !a.Type.IsSet() || v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}

func (u Update) compile(b *Builder) (string, error) {
	name := b.name(u.attr)

	switch u.kind {
	case clauseSet:
		tok, err := b.value(u.attr, u.value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", name, tok), nil

	case clauseRemove:
		return name, nil

	case clauseAdd:
		if u.attr.Type != schema.Number && !u.attr.Type.IsSet() {
			return "", buildErrorf("ADD is not applicable to %s attribute %q", u.attr.Type, u.attr.Name)
		}
		tok, err := b.value(u.attr, u.value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s", name, tok), nil

	case clauseDelete:
		if !u.attr.Type.IsSet() {
			return "", buildErrorf("DELETE is not applicable to %s attribute %q", u.attr.Type, u.attr.Name)
		}
		tok, err := b.value(u.attr, u.value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s", name, tok), nil
	}

	return "", buildErrorf("unknown update action on %q", u.attr.Name)
}

// compileUpdate groups actions by clause keyword in call order and joins
// the clauses in SET, REMOVE, ADD, DELETE order.
func compileUpdate(b *Builder, actions []Update) (string, error) {
	if len(actions) == 0 {
		return "", buildErrorf("update expression has no actions")
	}

	seen := make(map[string]bool, len(actions))
	clauses := make(map[clauseKind][]string)
	for _, action := range actions {
		action = action.normalize()
		if seen[action.attr.Name] {
			return "", buildErrorf("attribute %q appears in more than one update clause", action.attr.Name)
		}
		seen[action.attr.Name] = true

		s, err := action.compile(b)
		if err != nil {
			return "", err
		}
		clauses[action.kind] = append(clauses[action.kind], s)
	}

	out := ""
	for _, kind := range []clauseKind{clauseSet, clauseRemove, clauseAdd, clauseDelete} {
		parts := clauses[kind]
		if len(parts) == 0 {
			continue
		}
		if out != "" {
			out += " "
		}
		out += clauseKeywords[kind] + " " + joinStrings(parts, ", ")
	}
	return out, nil
}

func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for _, s := range strs[1:] {
		result += sep + s
	}
	return result
}
