// Package store provides the DynamoDB repository for document pointers.
//
// Pointers live in a single table keyed by (pk, sk) with one global secondary
// index on doc_key:
//
//	pk      = P#{nhsNumber}
//	sk      = C#{category}#T#{pointerType}#O#{odsCode}#D#{localId}
//	doc_key = O#{odsCode}#D#{localId}
//
// The sort key starts with the type prefix so a search narrowed to one
// pointer type can use begins_with instead of a partition scan and filter.
//
// # Write preconditions
//
//   - [Repository.Create] writes only when (pk, sk) is absent
//   - [Repository.Update] and [Repository.Delete] write only when (pk, sk) exists
//   - [Repository.Supersede] creates first, then retires the old pointers one
//     by one; it is not atomic across the two phases
//
// There is no version check on update: concurrent updates of the same pointer
// are last-writer-wins.
//
// # Errors
//
//   - [ErrAlreadyExists] - create precondition failed
//   - [ErrNotFound] - no pointer for the requested id
//   - [ErrInternal] - store failure, duplicate lookup key, missing key on
//     update or delete, or a stored pointer that no longer parses
package store
