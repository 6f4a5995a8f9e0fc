package store

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrNotFound is returned when an item doesn't exist.
	ErrNotFound = errors.New("espalier: item not found")

	// ErrConditionFailed is returned when a conditional write is rejected
	// by the store. VersionConflictError and ConditionFailedError wrap it.
	ErrConditionFailed = errors.New("espalier: conditional write failed")
)

// DecodeError reports a wire document that cannot be decoded into an item
// of its schema.
type DecodeError struct {
	Attr string
	msg  string
}

func decodeErrorf(attr, format string, args ...any) *DecodeError {
	return &DecodeError{Attr: attr, msg: fmt.Sprintf(format, args...)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("espalier: cannot decode attribute %q: %s", e.Attr, e.msg)
}

// VersionConflictError is returned when a version-conditioned write is
// rejected because the stored version no longer matches. It is expected
// and recoverable: the caller decides whether to re-read and retry; the
// store never retries it automatically.
type VersionConflictError struct {
	// PriorState carries the store-returned current document, unmodified,
	// when the caller opted in via ReturnOldOnFailure. Decode it with
	// Decode to inspect the winning write.
	PriorState map[string]types.AttributeValue
}

func (e *VersionConflictError) Error() string {
	return "espalier: version conflict"
}

func (e *VersionConflictError) Unwrap() error {
	return ErrConditionFailed
}

// ConditionFailedError is returned when a caller-supplied condition is
// rejected on a write without a version condition.
type ConditionFailedError struct {
	// PriorState carries the store-returned current document when the
	// caller opted in via ReturnOldOnFailure.
	PriorState map[string]types.AttributeValue
}

func (e *ConditionFailedError) Error() string {
	return "espalier: conditional write failed"
}

func (e *ConditionFailedError) Unwrap() error {
	return ErrConditionFailed
}

// BatchError is returned when a batch operation exhausts its retry budget
// with items still unprocessed. It reports precisely which operations were
// not applied so the caller can resume; already-applied chunks are never
// rolled back.
type BatchError struct {
	// Keys lists read keys the store never processed.
	Keys []map[string]types.AttributeValue

	// Writes lists write operations the store never applied.
	Writes []types.WriteRequest

	// Retries is the number of resubmissions attempted.
	Retries int
}

func (e *BatchError) Error() string {
	n := len(e.Keys) + len(e.Writes)
	return fmt.Sprintf("espalier: batch incomplete: %d operations unprocessed after %d retries", n, e.Retries)
}
