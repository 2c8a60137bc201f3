// Package app wires the client core together: one persistence queue, the
// session manager and the cart manager, all sharing one key-value store.
//
// Restore is the loading gate. Nothing read from the managers before it
// returns reflects persisted state.
package app
