// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (dish.go, message.go, errors.go, ...) hold the shared types and the
// cross-cutting interfaces. No implementation code, just contracts.
package domain
