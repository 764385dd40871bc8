package stage

import (
	"context"

	"airdesk/internal/store"
)

// Handler describes the contract the workflow manager needs from each stage.
// Execute mutates the call in place; the manager persists the result.
type Handler interface {
	Prepare(context.Context, *store.Call) error
	Execute(context.Context, *store.Call) error
	HealthCheck(context.Context) Health
}
