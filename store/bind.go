package store

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Bind populates the item from a Go struct. Fields are marshalled with the
// SDK's attributevalue rules (`dynamodbav` tags apply) and then decoded
// through the schema's descriptors, so the declared wire types still
// govern what is stored. Struct fields without a matching schema attribute
// are carried as unknown attributes, mirroring Decode.
func (it *Item) Bind(v any) error {
	doc, err := attributevalue.MarshalMap(v)
	if err != nil {
		return err
	}
	for name, av := range doc {
		attr := it.schema.Attribute(name)
		if attr == nil {
			if it.unknown == nil {
				it.unknown = make(map[string]types.AttributeValue)
			}
			it.unknown[name] = av
			continue
		}
		val, err := attr.Deserialize(av)
		if err != nil {
			return err
		}
		if attr.Version {
			if f, ok := val.(float64); ok {
				val = int64(f)
			}
		}
		it.attrs[name] = val
	}
	return nil
}

// Export encodes the item and unmarshals the wire document into a Go
// struct via the SDK's attributevalue rules. It is the inverse of Bind.
func (it *Item) Export(v any) error {
	doc, err := Encode(it)
	if err != nil {
		return err
	}
	return attributevalue.UnmarshalMap(doc, v)
}
