package store

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/espalier/schema"
)

// Encode converts a populated item to its wire document. Set attributes
// are serialized through their descriptors; unset non-key attributes are
// omitted. Wire attributes the item carried opaquely from an earlier
// decode round-trip unchanged.
func Encode(it *Item) (map[string]types.AttributeValue, error) {
	s := it.Schema()
	doc := make(map[string]types.AttributeValue, len(it.attrs)+len(it.unknown))

	for _, attr := range s.Attributes() {
		v, ok := it.attrs[attr.Name]
		if !ok {
			if attr.HashKey || attr.RangeKey {
				return nil, decodeErrorf(attr.Name, "key attribute is not set")
			}
			continue
		}
		if v == nil && attr.Nullable {
			doc[attr.Name] = &types.AttributeValueMemberNULL{Value: true}
			continue
		}
		av, err := attr.Serialize(v)
		if err != nil {
			return nil, err
		}
		doc[attr.Name] = av
	}

	for name, av := range it.unknown {
		if _, claimed := doc[name]; !claimed {
			doc[name] = av
		}
	}

	return doc, nil
}

// Decode converts a wire document into an item of the given schema. A
// missing key attribute fails with a DecodeError. Attributes unknown to
// the schema are kept as opaque raw values rather than dropped, so
// documents that predate the current schema (for example prior-state
// payloads from a failed conditional write) decode without loss.
func Decode(s *schema.Schema, doc map[string]types.AttributeValue) (*Item, error) {
	it := &Item{
		schema: s,
		attrs:  make(map[string]any, len(doc)),
	}

	for name, av := range doc {
		attr := s.Attribute(name)
		if attr == nil {
			if it.unknown == nil {
				it.unknown = make(map[string]types.AttributeValue)
			}
			it.unknown[name] = av
			continue
		}
		v, err := attr.Deserialize(av)
		if err != nil {
			return nil, err
		}
		if attr.Version {
			// The lock counter stays integral.
			if f, ok := v.(float64); ok {
				v = int64(f)
			}
		}
		it.attrs[name] = v
	}

	if _, ok := it.attrs[s.HashKey().Name]; !ok {
		return nil, decodeErrorf(s.HashKey().Name, "document is missing the hash key")
	}
	if rng := s.RangeKey(); rng != nil {
		if _, ok := it.attrs[rng.Name]; !ok {
			return nil, decodeErrorf(rng.Name, "document is missing the range key")
		}
	}

	return it, nil
}

// buildKey serializes a native key into its wire form.
func buildKey(s *schema.Schema, k Key) (map[string]types.AttributeValue, error) {
	hash := s.HashKey()
	av, err := hash.Serialize(k.Hash)
	if err != nil {
		return nil, err
	}
	key := map[string]types.AttributeValue{hash.Name: av}

	rng := s.RangeKey()
	switch {
	case rng == nil && k.Range != nil:
		return nil, decodeErrorf("", "schema %q has no range key", s.TableName())
	case rng != nil:
		if k.Range == nil {
			return nil, decodeErrorf(rng.Name, "range key is required")
		}
		av, err := rng.Serialize(k.Range)
		if err != nil {
			return nil, err
		}
		key[rng.Name] = av
	}

	return key, nil
}
