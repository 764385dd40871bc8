// Package dispatch holds the in-memory ticket board used by dispatchers.
//
// Moves are applied to the board first and then persisted. When the store
// rejects a move the ticket returns to its previous column and position, so
// the board always mirrors what the store accepted.
package dispatch
