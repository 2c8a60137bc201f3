// Package postgres implements domain.KeyValueStore on a single PostgreSQL
// table.
//
// Uses pgx for connection pooling and tern for migrations. Keys are namespaced
// the same way as in the redis adapter so one database can serve several
// client cores.
package postgres
