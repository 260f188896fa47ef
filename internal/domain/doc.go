// Package domain contains the core business entities and value objects of the
// application: the chronicle entity references that enrichment tasks target
// and the normalized enrichment records handed to the reconciliation layer.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
