// Package engine implements the per-variable BnB-ADOPT search core: the
// bounds table, the context store and the variable state machine with its
// VALUE, COST and TERMINATE handlers.
//
// The engine is deliberately transport-agnostic. A variable talks to the
// outside world only through the Emitter handle passed into each call, and
// every handler runs on its owning agent's single goroutine, so no state in
// this package is guarded by locks.
package engine
