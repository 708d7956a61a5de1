// Package sources reads synonym records from the local store.
//
// Implementations:
//   - file: a YAML, JSON or TOML document with a top level "synonyms" list,
//     validated against an embedded JSON schema
//   - database: the PostgreSQL "synonyms" table
//
// Both report a content hash so callers can skip exports when nothing changed.
// FileWatcher turns file changes into export triggers.
package sources
