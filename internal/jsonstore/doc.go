// Package jsonstore is the secondary, document-backed publication
// store: a flat ordered list of records persisted as a single JSON
// file instead of a relational table.
//
// Identifiers are strings formed as a fixed prefix plus a zero-padded
// increasing counter ("PUB001"). Every add or update touching title or
// abstract recomputes a bounded keyword set stored alongside the
// record; search runs substring containment over the lowercase join of
// all fields plus those keywords.
//
// The store-level contract (add/get/get-all/update/delete/search/
// export) matches the relational recstore: same field names, same
// not-found-is-not-an-error semantics, same descending recency order,
// same attachment coupling and export behavior. Either backing
// representation can sit behind the CLI.
package jsonstore
