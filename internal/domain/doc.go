// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (cart.go, session.go, store.go, errors.go) hold the shared
// value types and the ports the managers depend on. No implementation code - just contracts.
package domain
