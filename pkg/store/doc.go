// Package store persists character records and recompiles them on write.
//
// Responsibilities:
//   - Store[T] loads and saves one record for one Ref. Saves are stamped
//     with a fresh SnapshotID and a content ETag; passing the ETag that was
//     loaded makes the save conditional.
//   - MemoryStore[T] keeps records in process; SQLStore[T] keeps them in
//     SQLite (modernc.org/sqlite) or Postgres (pgx stdlib).
//   - Resolver loads records into compiled characters and runs Mutate:
//     load, check ETag, apply the change, validate, recompile, save.
//
// Data flow:
//
//	Store -> Resolver -> sheet.Compile(...) -> *sheet.Character
//
// A record that does not compile (for example because of a dependency
// cycle in its content) is never saved.
package store
