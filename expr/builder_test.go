package expr_test

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/espalier/expr"
	"github.com/jacentio/espalier/schema"
)

func threadSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Register(schema.Definition{
		TableName: "threads",
		Attributes: []schema.Attribute{
			{Name: "forum", Type: schema.String, HashKey: true},
			{Name: "subject", Type: schema.String, RangeKey: true},
			{Name: "views", Type: schema.Number},
			{Name: "answered", Type: schema.Bool},
			{Name: "tags", Type: schema.StringSet},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return s
}

// --- Condition Tests ---

func TestCondition_Comparison(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	got, err := b.Condition(expr.And(
		expr.Equal(s.Attribute("forum"), "foo"),
		expr.GreaterThan(s.Attribute("views"), 0),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "(#a0 = :v0) AND (#a1 > :v1)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if name := b.Names()["#a0"]; name != "forum" {
		t.Errorf("expected '#a0' -> 'forum', got %q", name)
	}
	if name := b.Names()["#a1"]; name != "views" {
		t.Errorf("expected '#a1' -> 'views', got %q", name)
	}
	if v := b.Values()[":v0"].(*types.AttributeValueMemberS).Value; v != "foo" {
		t.Errorf("expected ':v0' -> 'foo', got %q", v)
	}
	if v := b.Values()[":v1"].(*types.AttributeValueMemberN).Value; v != "0" {
		t.Errorf("expected ':v1' -> '0', got %q", v)
	}
}

func TestCondition_Rendering(t *testing.T) {
	s := threadSchema(t)

	tests := []struct {
		name string
		cond expr.Condition
		want string
	}{
		{
			"not equal",
			expr.NotEqual(s.Attribute("forum"), "foo"),
			"#a0 <> :v0",
		},
		{
			"between",
			expr.Between(s.Attribute("views"), 1, 10),
			"#a0 BETWEEN :v0 AND :v1",
		},
		{
			"in",
			expr.In(s.Attribute("forum"), "a", "b", "c"),
			"#a0 IN (:v0, :v1, :v2)",
		},
		{
			"exists",
			expr.Exists(s.Attribute("forum")),
			"attribute_exists(#a0)",
		},
		{
			"not exists",
			expr.NotExists(s.Attribute("answered")),
			"attribute_not_exists(#a0)",
		},
		{
			"begins_with",
			expr.BeginsWith(s.Attribute("subject"), "How do I"),
			"begins_with(#a0, :v0)",
		},
		{
			"contains on a set serializes the member type",
			expr.Contains(s.Attribute("tags"), "golang"),
			"contains(#a0, :v0)",
		},
		{
			"not",
			expr.Not(expr.Equal(s.Attribute("answered"), true)),
			"NOT (#a0 = :v0)",
		},
		{
			"nested junctions parenthesize",
			expr.Or(
				expr.Equal(s.Attribute("forum"), "a"),
				expr.And(
					expr.Equal(s.Attribute("forum"), "b"),
					expr.Exists(s.Attribute("answered")),
				),
			),
			"(#a0 = :v0) OR ((#a0 = :v1) AND (attribute_exists(#a1)))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := expr.NewBuilder()
			got, err := b.Condition(tt.cond)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCondition_ContainsMemberIsScalar(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	if _, err := b.Condition(expr.Contains(s.Attribute("tags"), "golang")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	av, ok := b.Values()[":v0"].(*types.AttributeValueMemberS)
	if !ok || av.Value != "golang" {
		t.Errorf("expected scalar S member 'golang', got %#v", b.Values()[":v0"])
	}
}

func TestCondition_Dedup(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	got, err := b.Condition(expr.Or(
		expr.Equal(s.Attribute("forum"), "foo"),
		expr.Equal(s.Attribute("forum"), "foo"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "(#a0 = :v0) OR (#a0 = :v0)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if len(b.Values()) != 1 {
		t.Errorf("expected 1 registered value, got %d", len(b.Values()))
	}
}

func TestCondition_SharedBuilderNamespace(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	key, err := b.Condition(expr.Equal(s.Attribute("forum"), "foo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	filter, err := b.Condition(expr.GreaterThan(s.Attribute("views"), 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if key != "#a0 = :v0" {
		t.Errorf("unexpected key expression %q", key)
	}
	if filter != "#a1 > :v1" {
		t.Errorf("expected the filter to continue the namespace, got %q", filter)
	}
}

func TestCondition_BuildErrors(t *testing.T) {
	s := threadSchema(t)

	tests := []struct {
		name string
		cond expr.Condition
	}{
		{"begins_with on number", expr.BeginsWith(s.Attribute("views"), "1")},
		{"contains on bool", expr.Contains(s.Attribute("answered"), true)},
		{"empty IN", expr.In(s.Attribute("forum"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := expr.NewBuilder()
			_, err := b.Condition(tt.cond)
			var buildErr *expr.BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("expected BuildError, got %v", err)
			}
		})
	}
}

func TestCondition_Nil(t *testing.T) {
	b := expr.NewBuilder()
	if _, err := b.Condition(nil); err == nil {
		t.Fatal("expected an error for a nil condition")
	}
}

func TestCondition_SerializeFailurePropagates(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	_, err := b.Condition(expr.Equal(s.Attribute("views"), "not a number"))
	var marshalErr *schema.MarshalError
	if !errors.As(err, &marshalErr) {
		t.Fatalf("expected MarshalError, got %v", err)
	}
}

// --- Update Tests ---

func TestUpdate_ClauseGrouping(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	got, err := b.Update([]expr.Update{
		expr.Set(s.Attribute("subject"), "updated"),
		expr.Remove(s.Attribute("answered")),
		expr.Add(s.Attribute("views"), 1),
		expr.Delete(s.Attribute("tags"), []string{"stale"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "SET #a0 = :v0 REMOVE #a1 ADD #a2 :v1 DELETE #a3 :v2"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestUpdate_MultipleActionsPerClause(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	got, err := b.Update([]expr.Update{
		expr.Set(s.Attribute("subject"), "a"),
		expr.Set(s.Attribute("views"), 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "SET #a0 = :v0, #a1 = :v1"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestUpdate_EmptySetBecomesRemove(t *testing.T) {
	s := threadSchema(t)
	b := expr.NewBuilder()

	got, err := b.Update([]expr.Update{
		expr.Set(s.Attribute("tags"), []string{}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "REMOVE #a0" {
		t.Errorf("expected 'REMOVE #a0', got %q", got)
	}
	if b.Values() != nil {
		t.Errorf("expected no registered values, got %v", b.Values())
	}
}

func TestUpdate_Errors(t *testing.T) {
	s := threadSchema(t)

	tests := []struct {
		name    string
		actions []expr.Update
	}{
		{
			"no actions",
			nil,
		},
		{
			"attribute in two clauses",
			[]expr.Update{
				expr.Set(s.Attribute("views"), 1),
				expr.Add(s.Attribute("views"), 1),
			},
		},
		{
			"ADD on string",
			[]expr.Update{expr.Add(s.Attribute("subject"), "x")},
		},
		{
			"DELETE on number",
			[]expr.Update{expr.Delete(s.Attribute("views"), 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := expr.NewBuilder()
			_, err := b.Update(tt.actions)
			var buildErr *expr.BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("expected BuildError, got %v", err)
			}
		})
	}
}
