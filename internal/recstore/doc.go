// Package recstore provides SQLite-backed storage for flat,
// optional-field records.
//
// One Store owns one table, declared by a Schema: an auto-assigned
// integer primary key, a fixed ordered set of nullable TEXT columns, a
// nullable BLOB/TEXT attachment pair, and store-assigned timestamps.
// Each record kind (publication, sequence) supplies its own Schema and
// gets its own database file; the CRUD, search and export contract is
// identical across kinds.
//
// # Contract
//
//   - Every field except id may be NULL; no minimum-field rule is
//     enforced here.
//   - Ids are assigned at creation, strictly increasing, never reused.
//   - Attachment presence is coupled: data and filename are both set
//     or both NULL. Attachments are write-once at creation.
//   - Search is pure substring containment (SQLite LIKE, engine
//     default case rules) OR-ed across the schema's search fields,
//     ordered by descending id.
//   - Not-found is a normal result (nil/false, no error); storage
//     faults are logged at the operation boundary and returned as
//     wrapped errors.
//
// # Schema evolution
//
// Migrations are additive only (new nullable columns) and versioned
// via PRAGMA user_version; existing data is never dropped or
// rewritten. The composite search index is a performance aid created
// best-effort at Open.
package recstore
