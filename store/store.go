package store

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/espalier/expr"
	"github.com/jacentio/espalier/schema"
)

// Client is the synchronous transport the store delegates to. It is the
// request/response surface of dynamodb.Client; retries for throttling,
// timeouts, credentials and endpoint selection are its concern, not the
// mapper's.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store provides schema-driven DynamoDB operations: versioned writes,
// query/scan iteration and batch execution. All per-call state is
// call-local; a Store is safe for concurrent use.
type Store struct {
	client Client
	config Config
}

// New creates a new Store instance.
func New(client Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// SaveOptions configures Save behavior.
type SaveOptions struct {
	// Condition is a caller-supplied write condition, combined with the
	// version condition when the schema is versioned.
	Condition expr.Condition

	// ReturnOldOnFailure asks the store to attach the item's current
	// document to the conflict error when the condition fails.
	ReturnOldOnFailure bool
}

// Save writes the full item. For versioned schemas the first save
// initializes the version to 1 unconditionally; saving an item that
// already carries a version v sends the write conditioned on
// `attribute_exists(hash) AND version = v` and stores v+1. On success the
// in-memory version is advanced; on a rejected condition the error is a
// VersionConflictError.
func (s *Store) Save(ctx context.Context, it *Item, opts SaveOptions) error {
	b := expr.NewBuilder()
	cond := opts.Condition

	prior, hasPrior := it.Version()
	versioned := it.Schema().VersionAttribute() != nil
	next := prior
	if versioned {
		next = prior + 1
		it.setVersion(next)
		if hasPrior {
			vc := expr.And(
				expr.Exists(it.Schema().HashKey()),
				expr.Equal(it.Schema().VersionAttribute(), prior),
			)
			if cond != nil {
				cond = expr.And(cond, vc)
			} else {
				cond = vc
			}
		}
	}

	doc, err := Encode(it)
	if err != nil {
		s.rollbackVersion(it, versioned, hasPrior, prior)
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(it.Schema().TableName()),
		Item:      doc,
	}
	if cond != nil {
		condExpr, err := b.Condition(cond)
		if err != nil {
			s.rollbackVersion(it, versioned, hasPrior, prior)
			return err
		}
		input.ConditionExpression = aws.String(condExpr)
		input.ExpressionAttributeNames = b.Names()
		input.ExpressionAttributeValues = b.Values()
	}
	if opts.ReturnOldOnFailure {
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		s.rollbackVersion(it, versioned, hasPrior, prior)
		return s.mapConditionError(err, versioned && hasPrior)
	}
	return nil
}

func (s *Store) rollbackVersion(it *Item, versioned, hasPrior bool, prior int64) {
	if !versioned {
		return
	}
	if hasPrior {
		it.setVersion(prior)
		return
	}
	it.Clear(it.Schema().VersionAttribute().Name)
}

// UpdateOptions configures Update behavior.
type UpdateOptions struct {
	Condition          expr.Condition
	ReturnOldOnFailure bool
}

// Update applies update actions to a stored item. For versioned schemas
// the update is conditioned on `version = v` and additionally sets
// version to v+1; the actions must not touch the version attribute
// themselves. On success the item's state is replaced with the store's
// post-update document.
func (s *Store) Update(ctx context.Context, it *Item, actions []expr.Update, opts UpdateOptions) error {
	key, err := it.Key()
	if err != nil {
		return err
	}
	wireKey, err := buildKey(it.Schema(), key)
	if err != nil {
		return err
	}

	b := expr.NewBuilder()
	cond := opts.Condition

	versionAttr := it.Schema().VersionAttribute()
	versioned := versionAttr != nil
	if versioned {
		prior, ok := it.Version()
		if !ok {
			return decodeErrorf(versionAttr.Name, "updating an item that was never saved")
		}
		actions = append(append([]expr.Update(nil), actions...), expr.Set(versionAttr, prior+1))
		vc := expr.Equal(versionAttr, prior)
		if cond != nil {
			cond = expr.And(cond, vc)
		} else {
			cond = vc
		}
	}

	updateExpr, err := b.Update(actions)
	if err != nil {
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(it.Schema().TableName()),
		Key:              wireKey,
		UpdateExpression: aws.String(updateExpr),
		ReturnValues:     types.ReturnValueAllNew,
	}
	if cond != nil {
		condExpr, err := b.Condition(cond)
		if err != nil {
			return err
		}
		input.ConditionExpression = aws.String(condExpr)
	}
	input.ExpressionAttributeNames = b.Names()
	input.ExpressionAttributeValues = b.Values()
	if opts.ReturnOldOnFailure {
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	out, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return s.mapConditionError(err, versioned)
	}
	if out.Attributes != nil {
		updated, err := Decode(it.Schema(), out.Attributes)
		if err != nil {
			return err
		}
		it.replaceFrom(updated)
	}
	return nil
}

// Get retrieves an item by key, returning ErrNotFound when it is missing.
func (s *Store) Get(ctx context.Context, sch *schema.Schema, key Key) (*Item, error) {
	wireKey, err := buildKey(sch, key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(sch.TableName()),
		Key:       wireKey,
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return Decode(sch, out.Item)
}

// Refresh re-reads the item and replaces its local state with the stored
// document.
func (s *Store) Refresh(ctx context.Context, it *Item) error {
	key, err := it.Key()
	if err != nil {
		return err
	}
	fresh, err := s.Get(ctx, it.Schema(), key)
	if err != nil {
		return err
	}
	it.replaceFrom(fresh)
	return nil
}

// DeleteOptions configures Delete behavior.
type DeleteOptions struct {
	Condition          expr.Condition
	ReturnOldOnFailure bool
}

// Delete removes the item. For versioned schemas with a known local
// version the delete is conditioned on `version = v`.
func (s *Store) Delete(ctx context.Context, it *Item, opts DeleteOptions) error {
	key, err := it.Key()
	if err != nil {
		return err
	}
	wireKey, err := buildKey(it.Schema(), key)
	if err != nil {
		return err
	}

	cond := opts.Condition
	versionAttr := it.Schema().VersionAttribute()
	prior, hasPrior := it.Version()
	if versionAttr != nil && hasPrior {
		vc := expr.Equal(versionAttr, prior)
		if cond != nil {
			cond = expr.And(cond, vc)
		} else {
			cond = vc
		}
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(it.Schema().TableName()),
		Key:       wireKey,
	}
	if cond != nil {
		b := expr.NewBuilder()
		condExpr, err := b.Condition(cond)
		if err != nil {
			return err
		}
		input.ConditionExpression = aws.String(condExpr)
		input.ExpressionAttributeNames = b.Names()
		input.ExpressionAttributeValues = b.Values()
	}
	if opts.ReturnOldOnFailure {
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	if _, err := s.client.DeleteItem(ctx, input); err != nil {
		return s.mapConditionError(err, versionAttr != nil && hasPrior)
	}
	return nil
}

// TableExists probes the model's table via DescribeTable.
func (s *Store) TableExists(ctx context.Context, sch *schema.Schema) (bool, error) {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(sch.TableName()),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// mapConditionError converts the transport's conditional-check failure
// into the mapper's error taxonomy. Other transport errors pass through
// unchanged.
func (s *Store) mapConditionError(err error, versionConditioned bool) error {
	var condErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condErr) {
		return err
	}
	if versionConditioned {
		return &VersionConflictError{PriorState: condErr.Item}
	}
	return &ConditionFailedError{PriorState: condErr.Item}
}
