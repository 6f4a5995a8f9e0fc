package store

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/jacentio/espalier/schema"
)

// BatchGet reads many items by key. Keys are split into chunks of at most
// 100 per request; keys the store reports as unprocessed are resubmitted
// with exponential backoff up to the configured retry ceiling. The result
// is a lazy iterator: each chunk is fetched when consumption reaches it,
// and items arrive in the order the store returns them, which bears no
// relation to the input key order.
func (s *Store) BatchGet(ctx context.Context, sch *schema.Schema, keys []Key) (*Iterator, error) {
	pending := make([]map[string]types.AttributeValue, len(keys))
	for i, k := range keys {
		wireKey, err := buildKey(sch, k)
		if err != nil {
			return nil, err
		}
		pending[i] = wireKey
	}

	return &Iterator{
		schema: sch,
		fetch: func(ctx context.Context) ([]map[string]types.AttributeValue, bool, error) {
			if len(pending) == 0 {
				return nil, false, nil
			}
			n := len(pending)
			if n > maxBatchGetItems {
				n = maxBatchGetItems
			}
			chunk := pending[:n]
			pending = pending[n:]
			docs, err := s.getChunk(ctx, sch.TableName(), chunk)
			if err != nil {
				return nil, false, err
			}
			return docs, len(pending) > 0, nil
		},
	}, nil
}

// getChunk issues one BatchGetItem chunk and resubmits unprocessed keys
// until the chunk completes or the retry ceiling is hit.
func (s *Store) getChunk(ctx context.Context, table string, chunk []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var docs []map[string]types.AttributeValue
	bo := s.newBackoff()
	remaining := chunk

	for retries := 0; ; retries++ {
		out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				table: {Keys: remaining},
			},
		})
		if err != nil {
			return nil, err
		}
		docs = append(docs, out.Responses[table]...)

		unprocessed := out.UnprocessedKeys[table].Keys
		if len(unprocessed) == 0 {
			return docs, nil
		}
		if retries >= s.config.MaxBatchRetries {
			return nil, &BatchError{Keys: unprocessed, Retries: retries}
		}

		s.config.Logger.Debug().
			Str("table", table).
			Int("unprocessed", len(unprocessed)).
			Int("retry", retries+1).
			Msg("resubmitting unprocessed batch keys")
		if err := sleepCtx(ctx, bo.NextBackOff()); err != nil {
			return nil, err
		}
		remaining = unprocessed
	}
}

// Batch accumulates put and delete operations for one model and flushes
// them in chunked BatchWriteItem requests. Operations are kept in call
// order and never deduplicated: submitting a put and a delete for the
// same key in one batch is the caller's mistake to avoid.
//
// A Batch is per-call state and not safe for concurrent use.
type Batch struct {
	store  *Store
	schema *schema.Schema
	writes []types.WriteRequest
}

// NewBatch opens a write batch for a model.
func (s *Store) NewBatch(sch *schema.Schema) *Batch {
	return &Batch{store: s, schema: sch}
}

// Put queues a full-item write. Batch writes carry no conditions, so for
// versioned schemas an item without a version gets the initial value 1;
// an existing version is written as-is, without a conflict check.
func (b *Batch) Put(it *Item) error {
	if b.schema.VersionAttribute() != nil {
		if _, ok := it.Version(); !ok {
			it.setVersion(1)
		}
	}
	doc, err := Encode(it)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, types.WriteRequest{
		PutRequest: &types.PutRequest{Item: doc},
	})
	return nil
}

// Delete queues a delete by key.
func (b *Batch) Delete(key Key) error {
	wireKey, err := buildKey(b.schema, key)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, types.WriteRequest{
		DeleteRequest: &types.DeleteRequest{Key: wireKey},
	})
	return nil
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.writes)
}

// Flush submits all queued operations in chunks of at most 25 operations
// and at most the request payload ceiling, in queue order. Unprocessed
// operations are resubmitted with exponential backoff up to the retry
// ceiling; past it, Flush fails with a BatchError listing every operation
// that was not applied. Chunks that already succeeded are not rolled
// back.
func (b *Batch) Flush(ctx context.Context) error {
	writes := b.writes
	b.writes = nil

	for len(writes) > 0 {
		n, size := 0, 0
		for n < len(writes) && n < maxBatchWriteItems {
			ws := sizeOfWrite(writes[n])
			if n > 0 && size+ws > maxBatchBytes {
				break
			}
			size += ws
			n++
		}
		chunk := writes[:n]
		writes = writes[n:]

		if err := b.store.writeChunk(ctx, b.schema.TableName(), chunk); err != nil {
			var batchErr *BatchError
			if errors.As(err, &batchErr) {
				// Everything not yet submitted is unapplied too.
				batchErr.Writes = append(batchErr.Writes, writes...)
			}
			return err
		}
	}
	return nil
}

// writeChunk issues one BatchWriteItem chunk and resubmits unprocessed
// operations until the chunk completes or the retry ceiling is hit.
func (s *Store) writeChunk(ctx context.Context, table string, chunk []types.WriteRequest) error {
	bo := s.newBackoff()
	remaining := chunk

	for retries := 0; ; retries++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: remaining},
		})
		if err != nil {
			return err
		}

		unprocessed := out.UnprocessedItems[table]
		if len(unprocessed) == 0 {
			return nil
		}
		if retries >= s.config.MaxBatchRetries {
			return &BatchError{Writes: unprocessed, Retries: retries}
		}

		s.config.Logger.Debug().
			Str("table", table).
			Int("unprocessed", len(unprocessed)).
			Int("retry", retries+1).
			Msg("resubmitting unprocessed batch writes")
		if err := sleepCtx(ctx, bo.NextBackOff()); err != nil {
			return err
		}
		remaining = unprocessed
	}
}

// BatchWrite runs fn with a fresh batch and flushes on exit, including
// when fn fails: operations queued before the failure are still
// submitted, mirroring scoped-resource semantics. Flushed chunks are
// independent; there is no atomicity across them.
func (s *Store) BatchWrite(ctx context.Context, sch *schema.Schema, fn func(*Batch) error) error {
	b := s.NewBatch(sch)
	fnErr := fn(b)
	if flushErr := b.Flush(ctx); flushErr != nil {
		if fnErr != nil {
			return errors.Join(fnErr, flushErr)
		}
		return flushErr
	}
	return fnErr
}

func (s *Store) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.config.BatchBackoffBase
	bo.MaxInterval = s.config.BatchBackoffCap
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // the retry ceiling bounds the loop, not time
	bo.Reset()
	return bo
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sizeOfWrite approximates one operation's wire payload contribution for
// the request size ceiling.
func sizeOfWrite(w types.WriteRequest) int {
	size := 0
	if w.PutRequest != nil {
		for name, av := range w.PutRequest.Item {
			size += len(name) + sizeOfValue(av)
		}
	}
	if w.DeleteRequest != nil {
		for name, av := range w.DeleteRequest.Key {
			size += len(name) + sizeOfValue(av)
		}
	}
	return size
}

func sizeOfValue(av types.AttributeValue) int {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value)
	case *types.AttributeValueMemberN:
		return len(v.Value)
	case *types.AttributeValueMemberB:
		return len(v.Value)
	case *types.AttributeValueMemberBOOL, *types.AttributeValueMemberNULL:
		return 1
	case *types.AttributeValueMemberSS:
		size := 0
		for _, s := range v.Value {
			size += len(s)
		}
		return size
	case *types.AttributeValueMemberNS:
		size := 0
		for _, s := range v.Value {
			size += len(s)
		}
		return size
	case *types.AttributeValueMemberBS:
		size := 0
		for _, b := range v.Value {
			size += len(b)
		}
		return size
	case *types.AttributeValueMemberL:
		size := 0
		for _, el := range v.Value {
			size += sizeOfValue(el)
		}
		return size
	case *types.AttributeValueMemberM:
		size := 0
		for name, el := range v.Value {
			size += len(name) + sizeOfValue(el)
		}
		return size
	}
	return 0
}
