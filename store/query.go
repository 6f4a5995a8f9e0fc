package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/espalier/expr"
	"github.com/jacentio/espalier/schema"
)

// Iterator is a lazy sequence of decoded items. Pages are fetched on
// demand and continuation tokens are followed transparently; the sequence
// is finite and cannot be restarted once consumed.
//
//	it, err := s.Query(ctx, params)
//	for it.Next(ctx) {
//		item := it.Item()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	schema *schema.Schema
	fetch  func(ctx context.Context) ([]map[string]types.AttributeValue, bool, error)
	buf    []*Item
	cur    *Item
	done   bool
	err    error
}

// Next advances to the next item, fetching further pages as needed. It
// returns false when the sequence is exhausted or an error occurred.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for len(it.buf) == 0 {
		if it.done {
			return false
		}
		page, more, err := it.fetch(ctx)
		if err != nil {
			it.err = err
			return false
		}
		it.done = !more
		for _, doc := range page {
			item, err := Decode(it.schema, doc)
			if err != nil {
				it.err = err
				return false
			}
			it.buf = append(it.buf, item)
		}
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

// Item returns the current item. Valid only after a true Next.
func (it *Iterator) Item() *Item {
	return it.cur
}

// Err returns the first error the iterator hit, if any.
func (it *Iterator) Err() error {
	return it.err
}

// QueryParams defines an index-aware read. The hash value is mandatory,
// and the caller picks the table or index to read from; the store performs
// no index selection of its own.
type QueryParams struct {
	Schema *schema.Schema

	// HashValue is the mandatory hash key equality operand.
	HashValue any

	// RangeCondition optionally narrows the key range. It must reference
	// the range key of the queried table or index.
	RangeCondition expr.Condition

	// Filter is applied by the store after key matching.
	Filter expr.Condition

	// Index names a local or global secondary index to query, or is
	// empty for the table itself.
	Index string

	// Limit caps the items per page (0 = the store's default).
	Limit int32

	// ScanForward orders the range traversal (nil = ascending).
	ScanForward *bool

	ConsistentRead bool
}

// Query issues an index-aware read and returns a lazy iterator over the
// decoded results. The key condition and filter share one placeholder
// namespace per request.
func (s *Store) Query(ctx context.Context, p QueryParams) (*Iterator, error) {
	hashAttr := p.Schema.HashKey()
	if p.Index != "" {
		idx := p.Schema.Index(p.Index)
		if idx == nil {
			return nil, decodeErrorf("", "schema %q has no index %q", p.Schema.TableName(), p.Index)
		}
		hashAttr = p.Schema.Attribute(idx.HashKey)
	}

	keyCond := expr.Condition(expr.Equal(hashAttr, p.HashValue))
	if p.RangeCondition != nil {
		keyCond = expr.And(keyCond, p.RangeCondition)
	}

	b := expr.NewBuilder()
	keyExpr, err := b.Condition(keyCond)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(p.Schema.TableName()),
		KeyConditionExpression: aws.String(keyExpr),
	}
	if p.Filter != nil {
		filterExpr, err := b.Condition(p.Filter)
		if err != nil {
			return nil, err
		}
		input.FilterExpression = aws.String(filterExpr)
	}
	input.ExpressionAttributeNames = b.Names()
	input.ExpressionAttributeValues = b.Values()

	if p.Index != "" {
		input.IndexName = aws.String(p.Index)
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(p.Limit)
	}
	if p.ScanForward != nil {
		input.ScanIndexForward = p.ScanForward
	}
	if p.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, input)
	return &Iterator{
		schema: p.Schema,
		fetch: func(ctx context.Context) ([]map[string]types.AttributeValue, bool, error) {
			if !paginator.HasMorePages() {
				return nil, false, nil
			}
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, false, err
			}
			return page.Items, paginator.HasMorePages(), nil
		},
	}, nil
}

// ScanParams defines a full-table read.
type ScanParams struct {
	Schema *schema.Schema

	// Filter narrows the results. Filtering happens after the store
	// retrieves (and charges for) each item, so a scan reads the whole
	// table regardless of filter selectivity.
	Filter expr.Condition

	// Index optionally scans a secondary index instead of the table.
	Index string

	// Limit caps the items per page (0 = the store's default).
	Limit int32

	ConsistentRead bool
}

// Scan reads the entire table (or index) as a lazy iterator. Cost is
// O(table size) even with a highly selective filter; prefer Query where a
// key condition exists.
func (s *Store) Scan(ctx context.Context, p ScanParams) (*Iterator, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(p.Schema.TableName()),
	}
	if p.Filter != nil {
		b := expr.NewBuilder()
		filterExpr, err := b.Condition(p.Filter)
		if err != nil {
			return nil, err
		}
		input.FilterExpression = aws.String(filterExpr)
		input.ExpressionAttributeNames = b.Names()
		input.ExpressionAttributeValues = b.Values()
	}
	if p.Index != "" {
		if p.Schema.Index(p.Index) == nil {
			return nil, decodeErrorf("", "schema %q has no index %q", p.Schema.TableName(), p.Index)
		}
		input.IndexName = aws.String(p.Index)
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(p.Limit)
	}
	if p.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}

	s.config.Logger.Warn().
		Str("table", p.Schema.TableName()).
		Msg("full table scan: cost is proportional to table size, not filter selectivity")

	paginator := dynamodb.NewScanPaginator(s.client, input)
	return &Iterator{
		schema: p.Schema,
		fetch: func(ctx context.Context) ([]map[string]types.AttributeValue, bool, error) {
			if !paginator.HasMorePages() {
				return nil, false, nil
			}
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, false, err
			}
			return page.Items, paginator.HasMorePages(), nil
		},
	}, nil
}
