package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/espalier/schema"
)

// Key identifies one item by its native hash and optional range value.
type Key struct {
	Hash  any
	Range any
}

// Item is a runtime model instance bound to its schema. Attribute values
// are native Go values; wire attributes unknown to the schema are carried
// opaquely so documents returned by the store (prior-state payloads in
// particular) survive decoding intact.
//
// Items are per-call state and not safe for concurrent mutation.
type Item struct {
	schema  *schema.Schema
	attrs   map[string]any
	unknown map[string]types.AttributeValue
}

// NewItem creates an empty item for a schema and resolves attribute
// defaults for attributes that carry a default provider.
func NewItem(s *schema.Schema) *Item {
	it := &Item{
		schema: s,
		attrs:  make(map[string]any),
	}
	for _, attr := range s.Attributes() {
		if attr.Default != nil {
			it.attrs[attr.Name] = attr.Default()
		}
	}
	return it
}

// Schema returns the schema the item is bound to.
func (it *Item) Schema() *schema.Schema {
	return it.schema
}

// Set assigns an attribute value. The name must be declared in the
// schema; type compatibility is checked when the item is encoded.
func (it *Item) Set(name string, v any) error {
	if it.schema.Attribute(name) == nil {
		return fmt.Errorf("espalier: attribute %q is not declared in schema %q", name, it.schema.TableName())
	}
	it.attrs[name] = v
	return nil
}

// Get returns an attribute value and whether it is set.
func (it *Item) Get(name string) (any, bool) {
	v, ok := it.attrs[name]
	return v, ok
}

// Clear unsets an attribute.
func (it *Item) Clear(name string) {
	delete(it.attrs, name)
}

// Unknown returns the raw wire attributes that were present in a decoded
// document but absent from the schema.
func (it *Item) Unknown() map[string]types.AttributeValue {
	return it.unknown
}

// Version returns the item's optimistic-lock version and whether one is
// set. It is always zero for unversioned schemas.
func (it *Item) Version() (int64, bool) {
	attr := it.schema.VersionAttribute()
	if attr == nil {
		return 0, false
	}
	v, ok := it.attrs[attr.Name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func (it *Item) setVersion(v int64) {
	if attr := it.schema.VersionAttribute(); attr != nil {
		it.attrs[attr.Name] = v
	}
}

// Key returns the item's primary key values. It fails when the hash key
// (or a declared range key) is unset.
func (it *Item) Key() (Key, error) {
	var k Key
	hash := it.schema.HashKey()
	v, ok := it.attrs[hash.Name]
	if !ok {
		return k, decodeErrorf(hash.Name, "hash key is not set")
	}
	k.Hash = v
	if rng := it.schema.RangeKey(); rng != nil {
		v, ok := it.attrs[rng.Name]
		if !ok {
			return k, decodeErrorf(rng.Name, "range key is not set")
		}
		k.Range = v
	}
	return k, nil
}

// replaceFrom swaps the item's state for another decoded item's.
func (it *Item) replaceFrom(other *Item) {
	it.attrs = other.attrs
	it.unknown = other.unknown
}
