package schema

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IndexKind distinguishes local from global secondary indexes.
type IndexKind int

const (
	// Local indexes share the table's hash key and add an alternate
	// range key.
	Local IndexKind = iota
	// Global indexes carry an independent hash/range key pair.
	Global
)

// Projection selects which attributes an index copies from the table.
type Projection int

const (
	ProjectAll Projection = iota
	ProjectKeysOnly
	ProjectInclude
)

// Index describes a secondary index over a model's attributes.
type Index struct {
	Name     string
	Kind     IndexKind
	HashKey  string
	RangeKey string

	Projection Projection
	// IncludedAttributes lists the projected non-key attributes when
	// Projection is ProjectInclude.
	IncludedAttributes []string

	// ReadCapacity and WriteCapacity provision a global index. Zero
	// values inherit the table's provisioning.
	ReadCapacity  int64
	WriteCapacity int64
}

func (p Projection) wire(included []string) *types.Projection {
	switch p {
	case ProjectKeysOnly:
		return &types.Projection{ProjectionType: types.ProjectionTypeKeysOnly}
	case ProjectInclude:
		return &types.Projection{
			ProjectionType:   types.ProjectionTypeInclude,
			NonKeyAttributes: included,
		}
	}
	return &types.Projection{ProjectionType: types.ProjectionTypeAll}
}

func scalarType(t WireType) types.ScalarAttributeType {
	switch t {
	case Number:
		return types.ScalarAttributeTypeN
	case Binary:
		return types.ScalarAttributeTypeB
	}
	return types.ScalarAttributeTypeS
}

func keySchema(hash, rng string) []types.KeySchemaElement {
	ks := []types.KeySchemaElement{{
		AttributeName: aws.String(hash),
		KeyType:       types.KeyTypeHash,
	}}
	if rng != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(rng),
			KeyType:       types.KeyTypeRange,
		})
	}
	return ks
}

// CreateTableInput translates the schema into the wire table definition:
// key schema, key attribute definitions and secondary indexes. Issuing the
// call (and the rest of table lifecycle) is the transport's business.
func (s *Schema) CreateTableInput(readCapacity, writeCapacity int64) *dynamodb.CreateTableInput {
	rangeName := ""
	if s.rangeKey != nil {
		rangeName = s.rangeKey.Name
	}

	// DynamoDB wants a definition for every attribute used in a key, and
	// only those. Collect them in declaration order.
	keyAttrs := map[string]bool{s.hashKey.Name: true}
	if rangeName != "" {
		keyAttrs[rangeName] = true
	}
	for _, idx := range s.indexes {
		keyAttrs[idx.HashKey] = true
		if idx.RangeKey != "" {
			keyAttrs[idx.RangeKey] = true
		}
	}
	var defs []types.AttributeDefinition
	for _, name := range s.order {
		if !keyAttrs[name] {
			continue
		}
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: scalarType(s.attrs[name].Type),
		})
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(s.tableName),
		KeySchema:            keySchema(s.hashKey.Name, rangeName),
		AttributeDefinitions: defs,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(readCapacity),
			WriteCapacityUnits: aws.Int64(writeCapacity),
		},
	}

	for _, idx := range s.indexes {
		switch idx.Kind {
		case Local:
			input.LocalSecondaryIndexes = append(input.LocalSecondaryIndexes, types.LocalSecondaryIndex{
				IndexName:  aws.String(idx.Name),
				KeySchema:  keySchema(idx.HashKey, idx.RangeKey),
				Projection: idx.Projection.wire(idx.IncludedAttributes),
			})
		case Global:
			gsi := types.GlobalSecondaryIndex{
				IndexName:  aws.String(idx.Name),
				KeySchema:  keySchema(idx.HashKey, idx.RangeKey),
				Projection: idx.Projection.wire(idx.IncludedAttributes),
			}
			read, write := idx.ReadCapacity, idx.WriteCapacity
			if read == 0 {
				read = readCapacity
			}
			if write == 0 {
				write = writeCapacity
			}
			gsi.ProvisionedThroughput = &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(read),
				WriteCapacityUnits: aws.Int64(write),
			}
			input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, gsi)
		}
	}

	return input
}
