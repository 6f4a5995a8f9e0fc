package schema

import (
	"errors"
	"math"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
)

// --- Serialize Tests ---

func TestSerialize_TaggedValues(t *testing.T) {
	tests := []struct {
		name     string
		attr     Attribute
		value    any
		expected types.AttributeValue
	}{
		{
			"string",
			Attribute{Name: "subject", Type: String},
			"hello",
			&types.AttributeValueMemberS{Value: "hello"},
		},
		{
			"empty string",
			Attribute{Name: "subject", Type: String},
			"",
			&types.AttributeValueMemberS{Value: ""},
		},
		{
			"int",
			Attribute{Name: "views", Type: Number},
			42,
			&types.AttributeValueMemberN{Value: "42"},
		},
		{
			"int64",
			Attribute{Name: "views", Type: Number},
			int64(-7),
			&types.AttributeValueMemberN{Value: "-7"},
		},
		{
			"float",
			Attribute{Name: "score", Type: Number},
			3.25,
			&types.AttributeValueMemberN{Value: "3.25"},
		},
		{
			"numeric string passes through",
			Attribute{Name: "score", Type: Number},
			"10.500",
			&types.AttributeValueMemberN{Value: "10.500"},
		},
		{
			"binary",
			Attribute{Name: "payload", Type: Binary},
			[]byte{0x01, 0x02},
			&types.AttributeValueMemberB{Value: []byte{0x01, 0x02}},
		},
		{
			"bool",
			Attribute{Name: "answered", Type: Bool},
			true,
			&types.AttributeValueMemberBOOL{Value: true},
		},
		{
			"string set",
			Attribute{Name: "tags", Type: StringSet},
			[]string{"a", "b"},
			&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		},
		{
			"number set",
			Attribute{Name: "scores", Type: NumberSet},
			[]int64{1, 2, 3},
			&types.AttributeValueMemberNS{Value: []string{"1", "2", "3"}},
		},
		{
			"binary set",
			Attribute{Name: "blobs", Type: BinarySet},
			[][]byte{{0x01}, {0x02}},
			&types.AttributeValueMemberBS{Value: [][]byte{{0x01}, {0x02}}},
		},
		{
			"list",
			Attribute{Name: "replies", Type: List},
			[]any{"a", int64(1), nil},
			&types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: "a"},
				&types.AttributeValueMemberN{Value: "1"},
				&types.AttributeValueMemberNULL{Value: true},
			}},
		},
		{
			"nested map",
			Attribute{Name: "data", Type: Map},
			map[string]any{"k": map[string]any{"n": 1.5}},
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"k": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
					"n": &types.AttributeValueMemberN{Value: "1.5"},
				}},
			}},
		},
		{
			"nil becomes NULL",
			Attribute{Name: "subject", Type: String, Nullable: true},
			nil,
			&types.AttributeValueMemberNULL{Value: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.attr.Serialize(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, got, cmpAttributeValues()); diff != "" {
				t.Errorf("wire value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func cmpAttributeValues() cmp.Option {
	return cmp.AllowUnexported(
		types.AttributeValueMemberS{},
		types.AttributeValueMemberN{},
		types.AttributeValueMemberB{},
		types.AttributeValueMemberBOOL{},
		types.AttributeValueMemberNULL{},
		types.AttributeValueMemberSS{},
		types.AttributeValueMemberNS{},
		types.AttributeValueMemberBS{},
		types.AttributeValueMemberL{},
		types.AttributeValueMemberM{},
	)
}

func TestSerialize_TypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		attr  Attribute
		value any
	}{
		{"int for string", Attribute{Name: "subject", Type: String}, 42},
		{"string for bool", Attribute{Name: "answered", Type: Bool}, "yes"},
		{"string for binary", Attribute{Name: "payload", Type: Binary}, "raw"},
		{"non-numeric string", Attribute{Name: "views", Type: Number}, "abc"},
		{"bool for number", Attribute{Name: "views", Type: Number}, true},
		{"string slice for number set", Attribute{Name: "scores", Type: NumberSet}, []string{"x"}},
		{"map for list", Attribute{Name: "replies", Type: List}, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.attr.Serialize(tt.value)
			var marshalErr *MarshalError
			if !errors.As(err, &marshalErr) {
				t.Fatalf("expected MarshalError, got %v", err)
			}
		})
	}
}

func TestSerialize_NonFiniteNumbers(t *testing.T) {
	attr := Attribute{Name: "score", Type: Number}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := attr.Serialize(v); err == nil {
			t.Errorf("expected error for %v", v)
		}
	}
}

func TestSerialize_EmptySet(t *testing.T) {
	tests := []struct {
		name  string
		attr  Attribute
		value any
	}{
		{"string set", Attribute{Name: "tags", Type: StringSet}, []string{}},
		{"number set", Attribute{Name: "scores", Type: NumberSet}, []float64{}},
		{"binary set", Attribute{Name: "blobs", Type: BinarySet}, [][]byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.attr.Serialize(tt.value)
			if !errors.Is(err, ErrEmptySet) {
				t.Fatalf("expected ErrEmptySet, got %v", err)
			}
		})
	}
}

// --- Deserialize Tests ---

func TestDeserialize_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		attr     Attribute
		wire     types.AttributeValue
		expected any
	}{
		{
			"string",
			Attribute{Name: "subject", Type: String},
			&types.AttributeValueMemberS{Value: "hello"},
			"hello",
		},
		{
			"number decodes to float64",
			Attribute{Name: "views", Type: Number},
			&types.AttributeValueMemberN{Value: "42"},
			float64(42),
		},
		{
			"bool",
			Attribute{Name: "answered", Type: Bool},
			&types.AttributeValueMemberBOOL{Value: false},
			false,
		},
		{
			"string set",
			Attribute{Name: "tags", Type: StringSet},
			&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
			[]string{"a", "b"},
		},
		{
			"number set",
			Attribute{Name: "scores", Type: NumberSet},
			&types.AttributeValueMemberNS{Value: []string{"1", "2.5"}},
			[]float64{1, 2.5},
		},
		{
			"null is untyped nil",
			Attribute{Name: "subject", Type: String},
			&types.AttributeValueMemberNULL{Value: true},
			nil,
		},
		{
			"nested document",
			Attribute{Name: "data", Type: Map},
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
					&types.AttributeValueMemberN{Value: "1"},
				}},
			}},
			map[string]any{"list": []any{float64(1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.attr.Deserialize(tt.wire)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("native value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeserialize_TagMismatch(t *testing.T) {
	attr := Attribute{Name: "views", Type: Number}
	_, err := attr.Deserialize(&types.AttributeValueMemberS{Value: "42"})
	var unmarshalErr *UnmarshalError
	if !errors.As(err, &unmarshalErr) {
		t.Fatalf("expected UnmarshalError, got %v", err)
	}
	if unmarshalErr.Attr != "views" {
		t.Errorf("expected attr 'views', got %q", unmarshalErr.Attr)
	}
}

// --- Legacy Binary Tests ---

func TestLegacyBinary_DoubleEncoding(t *testing.T) {
	attr := Attribute{Name: "payload", Type: Binary, LegacyBinaryEncoding: true}
	raw := []byte("hello")

	av, err := attr.Serialize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := av.(*types.AttributeValueMemberB)
	if !ok {
		t.Fatalf("expected B member, got %T", av)
	}
	// SDK base64-encodes B on the wire; the legacy mode adds one more layer.
	if string(b.Value) != "aGVsbG8=" {
		t.Errorf("expected stored payload 'aGVsbG8=', got %q", b.Value)
	}

	got, err := attr.Deserialize(av)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got.([]byte)) != "hello" {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestLegacyBinary_ModernAttributeIsTransparent(t *testing.T) {
	attr := Attribute{Name: "payload", Type: Binary}
	raw := []byte("hello")

	av, err := attr.Serialize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(av.(*types.AttributeValueMemberB).Value) != "hello" {
		t.Error("modern binary must not re-encode the payload")
	}
}

func TestLegacyBinary_SetMembers(t *testing.T) {
	attr := Attribute{Name: "blobs", Type: BinarySet, LegacyBinaryEncoding: true}

	av, err := attr.Serialize([][]byte{[]byte("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bs := av.(*types.AttributeValueMemberBS)
	if string(bs.Value[0]) != "aGk=" {
		t.Errorf("expected member 'aGk=', got %q", bs.Value[0])
	}

	got, err := attr.Deserialize(av)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got.([][]byte)[0]) != "hi" {
		t.Errorf("round trip mismatch: got %q", got.([][]byte)[0])
	}
}

// --- SerializeElement Tests ---

func TestSerializeElement_SetMember(t *testing.T) {
	attr := Attribute{Name: "tags", Type: StringSet}
	av, err := attr.SerializeElement("go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := av.(*types.AttributeValueMemberS); !ok || s.Value != "go" {
		t.Errorf("expected S member 'go', got %#v", av)
	}
}

func TestSerializeElement_NonSetFallsThrough(t *testing.T) {
	attr := Attribute{Name: "views", Type: Number}
	av, err := attr.SerializeElement(int64(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := av.(*types.AttributeValueMemberN); !ok || n.Value != "3" {
		t.Errorf("expected N '3', got %#v", av)
	}
}
