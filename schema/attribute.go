// Package schema defines attribute descriptors and model schemas for the
// espalier object mapper, and converts native Go values to and from the
// DynamoDB tagged wire representation.
package schema

import (
	"encoding/base64"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// WireType identifies the DynamoDB attribute value tag an attribute is
// stored under.
type WireType int

const (
	String WireType = iota
	Number
	Binary
	Bool
	StringSet
	NumberSet
	BinarySet
	List
	Map
)

var wireTypeNames = map[WireType]string{
	String:    "S",
	Number:    "N",
	Binary:    "B",
	Bool:      "BOOL",
	StringSet: "SS",
	NumberSet: "NS",
	BinarySet: "BS",
	List:      "L",
	Map:       "M",
}

func (t WireType) String() string {
	if n, ok := wireTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// IsSet reports whether the wire type is one of the three set types.
func (t WireType) IsSet() bool {
	return t == StringSet || t == NumberSet || t == BinarySet
}

// Element returns the member wire type of a set type. The boolean is false
// for non-set types.
func (t WireType) Element() (WireType, bool) {
	switch t {
	case StringSet:
		return String, true
	case NumberSet:
		return Number, true
	case BinarySet:
		return Binary, true
	}
	return 0, false
}

// Attribute describes one model attribute: its name, wire type, key role
// and marshalling contract. Descriptors are plain values until they are
// handed to Register, which copies them into an immutable Schema; mutating
// a descriptor after registration has no effect on the schema.
type Attribute struct {
	Name     string
	Type     WireType
	Nullable bool
	HashKey  bool
	RangeKey bool

	// Version tags the attribute as the model's optimistic-lock counter.
	// At most one attribute per merged schema may carry it.
	Version bool

	// Default, when set, provides a value for items that don't assign one
	// at construction time.
	Default func() any

	// LegacyBinaryEncoding applies the double base64 encoding older
	// mappers used for Binary and BinarySet values. The flag is resolved
	// at descriptor construction and honored on both directions.
	LegacyBinaryEncoding bool
}

// Serialize converts a native Go value to the attribute's tagged wire
// value. It fails with a MarshalError when the runtime type is
// incompatible with the declared wire type, when a Number is NaN or
// infinite, or when a set value is empty.
func (a *Attribute) Serialize(v any) (types.AttributeValue, error) {
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}

	switch a.Type {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, marshalErrorf(a, "expected string, got %T", v)
		}
		return &types.AttributeValueMemberS{Value: s}, nil

	case Number:
		n, err := a.formatNumber(v)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberN{Value: n}, nil

	case Binary:
		b, ok := v.([]byte)
		if !ok {
			return nil, marshalErrorf(a, "expected []byte, got %T", v)
		}
		return &types.AttributeValueMemberB{Value: a.encodeBinary(b)}, nil

	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, marshalErrorf(a, "expected bool, got %T", v)
		}
		return &types.AttributeValueMemberBOOL{Value: b}, nil

	case StringSet:
		ss, ok := v.([]string)
		if !ok {
			return nil, marshalErrorf(a, "expected []string, got %T", v)
		}
		if len(ss) == 0 {
			return nil, a.emptySetError()
		}
		return &types.AttributeValueMemberSS{Value: append([]string(nil), ss...)}, nil

	case NumberSet:
		ns, err := a.formatNumberSet(v)
		if err != nil {
			return nil, err
		}
		if len(ns) == 0 {
			return nil, a.emptySetError()
		}
		return &types.AttributeValueMemberNS{Value: ns}, nil

	case BinarySet:
		bs, ok := v.([][]byte)
		if !ok {
			return nil, marshalErrorf(a, "expected [][]byte, got %T", v)
		}
		if len(bs) == 0 {
			return nil, a.emptySetError()
		}
		out := make([][]byte, len(bs))
		for i, b := range bs {
			out[i] = a.encodeBinary(b)
		}
		return &types.AttributeValueMemberBS{Value: out}, nil

	case List:
		l, ok := v.([]any)
		if !ok {
			return nil, marshalErrorf(a, "expected []any, got %T", v)
		}
		out := make([]types.AttributeValue, len(l))
		for i, el := range l {
			av, err := a.serializeAny(el)
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil

	case Map:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, marshalErrorf(a, "expected map[string]any, got %T", v)
		}
		out := make(map[string]types.AttributeValue, len(m))
		for k, el := range m {
			av, err := a.serializeAny(el)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	}

	return nil, marshalErrorf(a, "unsupported wire type")
}

// Deserialize converts a tagged wire value back to its native form. It
// fails with an UnmarshalError on a tag mismatch.
func (a *Attribute) Deserialize(av types.AttributeValue) (any, error) {
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		return nil, nil
	}

	switch a.Type {
	case String:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		return s.Value, nil

	case Number:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, unmarshalErrorf(a, "invalid numeric string %q", n.Value)
		}
		return f, nil

	case Binary:
		b, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		return a.decodeBinary(b.Value)

	case Bool:
		b, ok := av.(*types.AttributeValueMemberBOOL)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		return b.Value, nil

	case StringSet:
		ss, ok := av.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		return append([]string(nil), ss.Value...), nil

	case NumberSet:
		ns, ok := av.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		out := make([]float64, len(ns.Value))
		for i, s := range ns.Value {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, unmarshalErrorf(a, "invalid numeric string %q", s)
			}
			out[i] = f
		}
		return out, nil

	case BinarySet:
		bs, ok := av.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		out := make([][]byte, len(bs.Value))
		for i, b := range bs.Value {
			d, err := a.decodeBinary(b)
			if err != nil {
				return nil, err
			}
			out[i] = d.([]byte)
		}
		return out, nil

	case List:
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		out := make([]any, len(l.Value))
		for i, el := range l.Value {
			v, err := a.deserializeAny(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case Map:
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return nil, unmarshalErrorf(a, "wire tag is %T", av)
		}
		out := make(map[string]any, len(m.Value))
		for k, el := range m.Value {
			v, err := a.deserializeAny(el)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}

	return nil, unmarshalErrorf(a, "unsupported wire type")
}

// SerializeElement serializes one member of a set attribute, using the
// set's element wire type. Used for contains conditions and ADD/DELETE
// update actions that operate on single members.
func (a *Attribute) SerializeElement(v any) (types.AttributeValue, error) {
	el, ok := a.Type.Element()
	if !ok {
		return a.Serialize(v)
	}
	member := Attribute{Name: a.Name, Type: el, LegacyBinaryEncoding: a.LegacyBinaryEncoding}
	return member.Serialize(v)
}

func (a *Attribute) emptySetError() error {
	err := marshalErrorf(a, "empty sets are not storable")
	err.err = ErrEmptySet
	return err
}

func (a *Attribute) formatNumber(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float32:
		return a.formatNumber(float64(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", marshalErrorf(a, "%v is not a storable number", n)
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case string:
		if _, err := strconv.ParseFloat(n, 64); err != nil {
			return "", marshalErrorf(a, "string %q is not a decimal number", n)
		}
		return n, nil
	}
	return "", marshalErrorf(a, "expected numeric value, got %T", v)
}

func (a *Attribute) formatNumberSet(v any) ([]string, error) {
	switch ns := v.(type) {
	case []float64:
		out := make([]string, len(ns))
		for i, n := range ns {
			s, err := a.formatNumber(n)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]string, len(ns))
		for i, n := range ns {
			out[i] = strconv.Itoa(n)
		}
		return out, nil
	case []int64:
		out := make([]string, len(ns))
		for i, n := range ns {
			out[i] = strconv.FormatInt(n, 10)
		}
		return out, nil
	case []string:
		for _, s := range ns {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return nil, marshalErrorf(a, "string %q is not a decimal number", s)
			}
		}
		return append([]string(nil), ns...), nil
	}
	return nil, marshalErrorf(a, "expected numeric slice, got %T", v)
}

// encodeBinary applies the legacy double-base64 encoding when configured.
func (a *Attribute) encodeBinary(b []byte) []byte {
	if !a.LegacyBinaryEncoding {
		return append([]byte(nil), b...)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out
}

func (a *Attribute) decodeBinary(b []byte) (any, error) {
	if !a.LegacyBinaryEncoding {
		return append([]byte(nil), b...), nil
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(out, b)
	if err != nil {
		return nil, unmarshalErrorf(a, "legacy binary payload is not base64: %v", err)
	}
	return out[:n], nil
}

// serializeAny converts an untyped value inside a List or Map by its
// runtime type. Sets cannot nest, so slices become lists.
func (a *Attribute) serializeAny(v any) (types.AttributeValue, error) {
	switch el := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: el}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: el}, nil
	case int, int32, int64, float32, float64:
		n, err := a.formatNumber(el)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberN{Value: n}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: append([]byte(nil), el...)}, nil
	case []any:
		out := make([]types.AttributeValue, len(el))
		for i, e := range el {
			av, err := a.serializeAny(e)
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case map[string]any:
		out := make(map[string]types.AttributeValue, len(el))
		for k, e := range el {
			av, err := a.serializeAny(e)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	}
	return nil, marshalErrorf(a, "unsupported nested value %T", v)
}

func (a *Attribute) deserializeAny(av types.AttributeValue) (any, error) {
	switch el := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return el.Value, nil
	case *types.AttributeValueMemberBOOL:
		return el.Value, nil
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(el.Value, 64)
		if err != nil {
			return nil, unmarshalErrorf(a, "invalid numeric string %q", el.Value)
		}
		return f, nil
	case *types.AttributeValueMemberB:
		return append([]byte(nil), el.Value...), nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(el.Value))
		for i, e := range el.Value {
			v, err := a.deserializeAny(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(el.Value))
		for k, e := range el.Value {
			v, err := a.deserializeAny(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, unmarshalErrorf(a, "unsupported nested wire tag %T", av)
}
