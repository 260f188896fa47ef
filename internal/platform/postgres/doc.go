// Package postgres provides PostgreSQL-backed implementations of the store
// interfaces. All stores accept a store.DBTX so they run against either a
// connection pool or a transaction, and map driver errors onto the store
// package's sentinel errors.
package postgres
