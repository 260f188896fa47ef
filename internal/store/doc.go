// Package store defines the persistence interfaces for enrichment results.
// Implementations live under internal/platform; consumers depend only on
// these interfaces so storage backends stay swappable in tests.
package store
