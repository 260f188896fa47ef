// Package api contains the HTTP handlers for the chronicle enrichment
// service. Handlers are thin: they decode and validate request DTOs, call
// into the scheduler or the stores, and map errors onto HTTP status codes.
// Route registration lives in cmd/server.
package api
