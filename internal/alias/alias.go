// Package alias allocates placeholder tokens for DynamoDB expressions.
package alias

import "fmt"

// Table assigns placeholder tokens for attribute names and literal values
// within a single compiled expression. The same attribute name, or the same
// canonical value key, always yields the token it was first assigned.
type Table struct {
	byName map[string]string // attribute name -> "#aN"
	names  map[string]string // "#aN" -> attribute name
	byKey  map[string]string // canonical value key -> ":vN"
}

// New creates an empty alias table.
func New() *Table {
	return &Table{
		byName: make(map[string]string),
		names:  make(map[string]string),
		byKey:  make(map[string]string),
	}
}

// Name returns the placeholder token for an attribute name, allocating a
// new "#aN" token on first use.
func (t *Table) Name(attr string) string {
	if tok, ok := t.byName[attr]; ok {
		return tok
	}
	tok := fmt.Sprintf("#a%d", len(t.byName))
	t.byName[attr] = tok
	t.names[tok] = attr
	return tok
}

// Value returns the placeholder token for a literal value identified by its
// canonical key. The boolean reports whether the token was newly allocated;
// callers register the wire value only for new tokens.
func (t *Table) Value(key string) (string, bool) {
	if tok, ok := t.byKey[key]; ok {
		return tok, false
	}
	tok := fmt.Sprintf(":v%d", len(t.byKey))
	t.byKey[key] = tok
	return tok, true
}

// Names returns the token-to-attribute-name substitution table in the
// orientation DynamoDB expects for ExpressionAttributeNames.
func (t *Table) Names() map[string]string {
	if len(t.names) == 0 {
		return nil
	}
	out := make(map[string]string, len(t.names))
	for k, v := range t.names {
		out[k] = v
	}
	return out
}
