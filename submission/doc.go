// Package submission defines the transport-level submission abstraction
// accepted by the orchestrator's ingestion path.
//
// Submission represents a caller-supplied job description: the dedup
// identity, the delivery channel, and an opaque JSON payload. It is
// intentionally minimal and does not contain any delivery or state
// information (status, retry count, lease, ...) — those concerns are
// handled by event.Event and the store.
//
// A Submission is designed to be:
//   - storage-agnostic
//   - lightweight
//   - safe to pass through the ingestion buffer
//
// Submission does not enforce immutability. Callers should treat it as
// immutable once handed to the ingestion buffer to avoid unintended
// data races.
package submission
