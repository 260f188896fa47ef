// Package enrich provides the types and interfaces for executing enrichment
// tasks against external generative model services. It abstracts the details
// of the model API integration (Gemini), so the scheduler can dispatch opaque
// payloads without coupling to a specific provider.
package enrich
