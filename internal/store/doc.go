// Package store persists stage hand-off results in SQLite.
//
// Each stage writes its output for a video (scene list, object index,
// scored sentences, resume intervals) in a single transaction at the end of
// a pass, replacing whatever an earlier pass stored. Downstream stages and
// the CLI read those results back instead of sharing memory. The runs table
// records every stage pass with its terminal status and error kind.
//
// The database is treated as a cache of derived results. Schema changes bump
// schemaVersion in schema.go; users clear the database to adopt the new
// schema.
package store
