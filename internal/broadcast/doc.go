// Package broadcast implements the live-channel hub using the actor pattern.
//
// One goroutine owns the set of channels and processes commands from a buffered queue
// (register, unregister, broadcast, count, stop), so no mutexes guard the set. Each channel
// has its own writer goroutine with a bounded send buffer; a channel that cannot keep up or
// fails a write is dropped without affecting the others or the caller of Broadcast.
package broadcast
