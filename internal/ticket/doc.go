// Package ticket defines dispatch tickets and their board lifecycle.
//
// A ticket is created READY when a call has been processed and moves forward
// only: READY, then DISPATCHED, then COMPLETED. Re-applying the current
// status is a no-op. Persistence lives in internal/store; this package holds
// the types, the transition rules, ID generation, and board grouping.
package ticket
