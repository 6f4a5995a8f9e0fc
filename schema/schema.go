package schema

import "strings"

// Definition is the caller-supplied description of a model: its table name
// and ordered attribute and index lists. Definitions are consumed by
// Register; the resulting Schema is immutable.
type Definition struct {
	TableName  string
	Attributes []Attribute
	Indexes    []Index
}

// Schema is the registered, immutable form of a model definition. One
// Schema value exists per model type and is safe for unsynchronized
// concurrent reads.
type Schema struct {
	tableName string
	order     []string
	attrs     map[string]*Attribute
	indexes   []Index
	hashKey   *Attribute
	rangeKey  *Attribute
	version   *Attribute
}

type registerOptions struct {
	parent *Schema
}

// Option configures Register.
type Option func(*registerOptions)

// WithParent merges the parent schema's attributes into the definition
// before validation. A child attribute with the same name overrides the
// parent's; new child attributes are appended in definition order.
func WithParent(parent *Schema) Option {
	return func(o *registerOptions) {
		o.parent = parent
	}
}

// Register validates a model definition and produces its immutable Schema.
// It is a pure function: repeated calls with identical inputs yield
// identical schemas, and it has no side effects.
//
// Validation enforces exactly one hash key, at most one range key, at most
// one version-tagged attribute, and that every index references only
// declared attributes. Violations fail with a SchemaError.
func Register(def Definition, opts ...Option) (*Schema, error) {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Schema{
		tableName: def.TableName,
		attrs:     make(map[string]*Attribute),
	}
	if s.tableName == "" {
		return nil, schemaErrorf("model definition is missing a table name")
	}

	// Parent attributes first, preserving their order. Overrides keep the
	// parent's position.
	if o.parent != nil {
		for _, name := range o.parent.order {
			attr := *o.parent.attrs[name]
			s.order = append(s.order, name)
			s.attrs[name] = &attr
		}
		s.indexes = append(s.indexes, o.parent.indexes...)
	}

	declared := make(map[string]bool, len(def.Attributes))
	for i := range def.Attributes {
		attr := def.Attributes[i] // copy; later descriptor mutation is inert
		if attr.Name == "" {
			return nil, schemaErrorf("attribute %d has no name", i)
		}
		if declared[attr.Name] {
			return nil, schemaErrorf("attribute %q declared twice", attr.Name)
		}
		declared[attr.Name] = true
		if _, inherited := s.attrs[attr.Name]; inherited {
			// Override of an inherited attribute keeps its position.
			s.attrs[attr.Name] = &attr
			continue
		}
		s.order = append(s.order, attr.Name)
		s.attrs[attr.Name] = &attr
	}

	if err := s.resolveKeys(); err != nil {
		return nil, err
	}

	for _, idx := range def.Indexes {
		if err := s.validateIndex(idx); err != nil {
			return nil, err
		}
		s.indexes = append(s.indexes, idx)
	}

	return s, nil
}

func (s *Schema) resolveKeys() error {
	var hashes, ranges, versions []string
	for _, name := range s.order {
		attr := s.attrs[name]
		if attr.HashKey {
			hashes = append(hashes, name)
			s.hashKey = attr
		}
		if attr.RangeKey {
			ranges = append(ranges, name)
			s.rangeKey = attr
		}
		if attr.Version {
			versions = append(versions, name)
			s.version = attr
		}
	}

	switch len(hashes) {
	case 0:
		return schemaErrorf("model %q has no hash key attribute", s.tableName)
	case 1:
	default:
		return schemaErrorf("model %q has more than one hash key attribute: %s",
			s.tableName, strings.Join(hashes, ", "))
	}
	if len(ranges) > 1 {
		return schemaErrorf("model %q has more than one range key attribute: %s",
			s.tableName, strings.Join(ranges, ", "))
	}
	if len(versions) > 1 {
		return schemaErrorf("model %q has more than one version attribute: %s",
			s.tableName, strings.Join(versions, ", "))
	}
	if s.version != nil && s.version.Type != Number {
		return schemaErrorf("version attribute %q must be a Number", s.version.Name)
	}
	return nil
}

func (s *Schema) validateIndex(idx Index) error {
	if idx.Name == "" {
		return schemaErrorf("model %q declares an unnamed index", s.tableName)
	}
	for _, prev := range s.indexes {
		if prev.Name == idx.Name {
			return schemaErrorf("index %q declared twice", idx.Name)
		}
	}
	if _, ok := s.attrs[idx.HashKey]; !ok {
		return schemaErrorf("index %q references undeclared attribute %q", idx.Name, idx.HashKey)
	}
	if idx.RangeKey != "" {
		if _, ok := s.attrs[idx.RangeKey]; !ok {
			return schemaErrorf("index %q references undeclared attribute %q", idx.Name, idx.RangeKey)
		}
	}
	if idx.Kind == Local {
		if idx.HashKey != s.hashKey.Name {
			return schemaErrorf("local index %q must use the table hash key %q", idx.Name, s.hashKey.Name)
		}
		if idx.RangeKey == "" {
			return schemaErrorf("local index %q requires a range key", idx.Name)
		}
	}
	for _, name := range idx.IncludedAttributes {
		if _, ok := s.attrs[name]; !ok {
			return schemaErrorf("index %q projects undeclared attribute %q", idx.Name, name)
		}
	}
	return nil
}

// TableName returns the table the model is stored in.
func (s *Schema) TableName() string {
	return s.tableName
}

// Attributes returns the schema's attributes in declaration order.
func (s *Schema) Attributes() []*Attribute {
	out := make([]*Attribute, len(s.order))
	for i, name := range s.order {
		out[i] = s.attrs[name]
	}
	return out
}

// Attribute returns the descriptor for a name, or nil when undeclared.
func (s *Schema) Attribute(name string) *Attribute {
	return s.attrs[name]
}

// HashKey returns the table's hash key attribute.
func (s *Schema) HashKey() *Attribute {
	return s.hashKey
}

// RangeKey returns the table's range key attribute, or nil.
func (s *Schema) RangeKey() *Attribute {
	return s.rangeKey
}

// VersionAttribute returns the version-tagged attribute, or nil for
// unversioned models.
func (s *Schema) VersionAttribute() *Attribute {
	return s.version
}

// Indexes returns the schema's secondary indexes.
func (s *Schema) Indexes() []Index {
	return append([]Index(nil), s.indexes...)
}

// Index returns the named index descriptor, or nil.
func (s *Schema) Index(name string) *Index {
	for i := range s.indexes {
		if s.indexes[i].Name == name {
			return &s.indexes[i]
		}
	}
	return nil
}
