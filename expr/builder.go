package expr

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/espalier/internal/alias"
	"github.com/jacentio/espalier/schema"
)

// Builder compiles condition trees and update actions into expression
// strings plus the name and value substitution tables DynamoDB expects.
//
// All state is call-local: create one Builder per outgoing request. When a
// request carries several expressions (a key condition and a filter, say)
// compile them through the same Builder so every placeholder stays unique
// within the request.
type Builder struct {
	aliases *alias.Table
	values  map[string]types.AttributeValue
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		aliases: alias.New(),
		values:  make(map[string]types.AttributeValue),
	}
}

// Condition compiles a condition tree into an expression string,
// registering its attribute names and literal values in the builder's
// substitution tables.
func (b *Builder) Condition(c Condition) (string, error) {
	if c == nil {
		return "", buildErrorf("nil condition")
	}
	return c.compile(b)
}

// Update compiles a list of update actions into a clause-grouped update
// expression.
func (b *Builder) Update(actions []Update) (string, error) {
	return compileUpdate(b, actions)
}

// Names returns the ExpressionAttributeNames substitution table, or nil
// when no names were aliased.
func (b *Builder) Names() map[string]string {
	return b.aliases.Names()
}

// Values returns the ExpressionAttributeValues substitution table, or nil
// when no literals were aliased.
func (b *Builder) Values() map[string]types.AttributeValue {
	if len(b.values) == 0 {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

func (b *Builder) name(a *schema.Attribute) string {
	return b.aliases.Name(a.Name)
}

// value serializes a literal through the attribute's descriptor and
// returns its placeholder token, reusing the token of an equal literal.
func (b *Builder) value(a *schema.Attribute, v any) (string, error) {
	av, err := a.Serialize(v)
	if err != nil {
		return "", err
	}
	return b.register(av), nil
}

// elementValue serializes a literal as a set member for contains
// conditions on set attributes.
func (b *Builder) elementValue(a *schema.Attribute, v any) (string, error) {
	av, err := a.SerializeElement(v)
	if err != nil {
		return "", err
	}
	return b.register(av), nil
}

func (b *Builder) register(av types.AttributeValue) string {
	tok, fresh := b.aliases.Value(canonicalKey(av))
	if fresh {
		b.values[tok] = av
	}
	return tok
}

// canonicalKey renders a wire value into a deterministic string so equal
// literals share one placeholder.
func canonicalKey(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberB:
		return "B:" + base64.StdEncoding.EncodeToString(v.Value)
	case *types.AttributeValueMemberBOOL:
		return "BOOL:" + strconv.FormatBool(v.Value)
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		return "SS:[" + strings.Join(v.Value, "\x1f") + "]"
	case *types.AttributeValueMemberNS:
		return "NS:[" + strings.Join(v.Value, "\x1f") + "]"
	case *types.AttributeValueMemberBS:
		parts := make([]string, len(v.Value))
		for i, b := range v.Value {
			parts[i] = base64.StdEncoding.EncodeToString(b)
		}
		return "BS:[" + strings.Join(parts, "\x1f") + "]"
	case *types.AttributeValueMemberL:
		parts := make([]string, len(v.Value))
		for i, el := range v.Value {
			parts[i] = canonicalKey(el)
		}
		return "L:[" + strings.Join(parts, "\x1f") + "]"
	case *types.AttributeValueMemberM:
		keys := make([]string, 0, len(v.Value))
		for k := range v.Value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + canonicalKey(v.Value[k])
		}
		return "M:{" + strings.Join(parts, "\x1f") + "}"
	}
	return "?"
}
