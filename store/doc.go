// Package store executes schema-driven DynamoDB operations.
//
// Espalier maps runtime-defined models to DynamoDB items. A model's shape
// lives in a [schema.Schema]; this package binds schemas to a transport
// client and provides versioned writes, typed reads, lazy query/scan
// iteration and chunked batch execution.
//
// # Items
//
// An [Item] holds native Go values for a schema's attributes. Items are
// created empty (defaults resolved) and populated by name:
//
//	it := store.NewItem(sch)
//	it.Set("forum", "go-help")
//	it.Set("views", int64(0))
//	err := s.Save(ctx, it, store.SaveOptions{})
//
// # Optimistic locking
//
// When a schema declares a version attribute, every Save, Update and
// Delete is conditioned on the version the caller last observed, and
// successful writes advance it by one. A rejected condition surfaces as a
// [VersionConflictError]; with ReturnOldOnFailure set, it carries the
// item's current stored document.
//
// # Iteration
//
// Query, Scan and BatchGet return an [Iterator] that fetches pages on
// demand and follows continuation tokens transparently:
//
//	it, err := s.Query(ctx, store.QueryParams{Schema: sch, HashValue: "go-help"})
//	for it.Next(ctx) {
//		item := it.Item()
//	}
//	err = it.Err()
//
// # Batches
//
// Writes queue in a [Batch] and flush in chunks of at most 25 operations;
// reads chunk at 100 keys. Operations the store reports as unprocessed
// are resubmitted with exponential backoff; past the retry ceiling the
// call fails with a [BatchError] listing what was not applied.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrNotFound] - no item exists under the key
//   - [ErrConditionFailed] - a write condition was rejected
//   - [VersionConflictError] - the version condition was rejected
//   - [ConditionFailedError] - a caller-supplied condition was rejected
//   - [BatchError] - batch operations remained unprocessed after retries
//   - [DecodeError] - a stored document does not fit the schema
package store
